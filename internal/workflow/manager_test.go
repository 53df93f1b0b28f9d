package workflow

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/inference"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 10; y < 50; y++ {
		for x := 10; x < 50; x++ {
			img.Set(x, y, color.NRGBA{R: 180, G: 90, B: 40, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	watch := t.TempDir()
	out := t.TempDir()
	m, err := NewManager(watch, out, NewResolver(nil), nil, 2)
	require.NoError(t, err)
	return m
}

func TestNewManager_RejectsBadParallelism(t *testing.T) {
	dir := t.TempDir()
	_, err := NewManager(dir, dir, NewResolver(nil), nil, 0)
	assert.ErrorIs(t, err, ErrInvalidParallelTasks)

	_, err = NewManager(dir, dir, NewResolver(nil), nil, 11)
	assert.ErrorIs(t, err, ErrInvalidParallelTasks)
}

func TestProcessFile_LocalSteps(t *testing.T) {
	m := newTestManager(t)

	// ENV flow without gen_pbr so no inference client is needed
	m.resolver.AddRule("ENV", []string{ProcMakeSeamless, ProcGenLOD}, "Environment")
	writeTestPNG(t, filepath.Join(m.watchDir, "ENV_rock_v01.png"))

	result := m.ProcessFile(context.Background(), "ENV_rock_v01.png")
	assert.Equal(t, "completed", result.Status)
	require.Len(t, result.Processes, 2)
	for _, step := range result.Processes {
		assert.Equal(t, "completed", step.Status)
	}

	// Final image and LOD levels are written out
	assert.FileExists(t, filepath.Join(m.outputDir, "processed_ENV_rock_v01.png"))
	assert.FileExists(t, filepath.Join(m.outputDir, "processed_ENV_rock_v01_lod0.png"))
	assert.FileExists(t, filepath.Join(m.outputDir, "processed_ENV_rock_v01_lod2.png"))
}

func TestProcessFile_CollisionBoxDetails(t *testing.T) {
	m := newTestManager(t)
	m.resolver.AddRule("PRP", []string{ProcBoxCollision}, "Prop")
	writeTestPNG(t, filepath.Join(m.watchDir, "PRP_barrel_v01.png"))

	result := m.ProcessFile(context.Background(), "PRP_barrel_v01.png")
	assert.Equal(t, "completed", result.Status)
	require.Len(t, result.Processes, 1)
	assert.JSONEq(t, `{"collisionBox":[10,10,50,50]}`, string(result.Processes[0].Details))
}

func TestProcessFile_MissingFile(t *testing.T) {
	m := newTestManager(t)

	result := m.ProcessFile(context.Background(), "CHR_ghost_v01.png")
	assert.Equal(t, "failed", result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestProcessFile_SegmentWithoutClientFailsStep(t *testing.T) {
	m := newTestManager(t)
	writeTestPNG(t, filepath.Join(m.watchDir, "CHR_hero_v01.png"))

	result := m.ProcessFile(context.Background(), "CHR_hero_v01.png")
	// The segment step fails but the flow continues with the original image
	assert.Equal(t, "completed", result.Status)
	require.NotEmpty(t, result.Processes)
	assert.Equal(t, "failed", result.Processes[0].Status)
}

func TestManager_StartStopIdempotent(t *testing.T) {
	m := newTestManager(t)

	m.Start()
	assert.True(t, m.Running())
	m.Start() // no-op

	m.Stop()
	assert.False(t, m.Running())
	m.Stop() // no-op
}

func TestManager_WatcherPicksUpNewFiles(t *testing.T) {
	m := newTestManager(t)
	m.resolver.AddRule("ENV", []string{ProcMakeSeamless}, "Environment")

	m.Start()
	defer m.Stop()

	writeTestPNG(t, filepath.Join(m.watchDir, "ENV_wall_v01.png"))

	require.Eventually(t, func() bool {
		return len(m.Status().ProcessedFiles) == 1
	}, 5*time.Second, 50*time.Millisecond)

	st := m.Status()
	assert.Equal(t, "ENV_wall_v01.png", st.ProcessedFiles[0].Filename)
	assert.Equal(t, 100.0, st.SuccessRate)
}

func TestManager_StatusAndHistory(t *testing.T) {
	m := newTestManager(t)
	m.resolver.AddRule("ENV", []string{ProcMakeSeamless}, "Environment")
	writeTestPNG(t, filepath.Join(m.watchDir, "ENV_a_v01.png"))

	m.ProcessFile(context.Background(), "ENV_a_v01.png")
	m.ProcessFile(context.Background(), "missing.png")

	st := m.Status()
	assert.Equal(t, 2, st.TotalFiles)
	assert.Equal(t, 50.0, st.SuccessRate)
	assert.Len(t, st.FailedFiles, 1)

	m.ClearHistory()
	st = m.Status()
	assert.Zero(t, st.TotalFiles)
}

func TestSetMaxParallelTasks(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.SetMaxParallelTasks(5))
	assert.Equal(t, 5, m.MaxParallelTasks())

	assert.ErrorIs(t, m.SetMaxParallelTasks(0), ErrInvalidParallelTasks)
	assert.ErrorIs(t, m.SetMaxParallelTasks(11), ErrInvalidParallelTasks)
}

func TestSetMaxParallelTasks_MidFlightRelease(t *testing.T) {
	watch := t.TempDir()
	out := t.TempDir()

	// Segment requests block until released so the slot is held while the
	// semaphore is swapped out under it.
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m, err := NewManager(watch, out, NewResolver(nil), inference.NewClient(srv.URL), 1)
	require.NoError(t, err)
	m.resolver.AddRule("CHR", []string{ProcSegment}, "Character")
	writeTestPNG(t, filepath.Join(watch, "CHR_hero_idle_v01.png"))

	done := make(chan FileResult, 1)
	go func() { done <- m.ProcessFile(context.Background(), "CHR_hero_idle_v01.png") }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.SetMaxParallelTasks(3))
	close(release)

	result := <-done
	assert.Equal(t, "completed", result.Status)
	require.Len(t, result.Processes, 1)
	assert.Equal(t, "failed", result.Processes[0].Status)

	// The slot was released on the semaphore it was acquired from, and the
	// new bound accepts further work.
	m.resolver.AddRule("PRP", []string{ProcBoxCollision}, "Prop")
	writeTestPNG(t, filepath.Join(watch, "PRP_barrel_oak_v01.png"))
	second := m.ProcessFile(context.Background(), "PRP_barrel_oak_v01.png")
	assert.Equal(t, "completed", second.Status)
}

func TestManager_StopWaitsForInFlightFiles(t *testing.T) {
	watch := t.TempDir()
	out := t.TempDir()

	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m, err := NewManager(watch, out, NewResolver(nil), inference.NewClient(srv.URL), 2)
	require.NoError(t, err)
	m.resolver.AddRule("CHR", []string{ProcSegment}, "Character")

	m.Start()
	writeTestPNG(t, filepath.Join(watch, "CHR_hero_walk_v01.png"))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never picked up the file")
	}

	// Unblock the inference call shortly after Stop begins waiting.
	time.AfterFunc(200*time.Millisecond, func() { close(release) })
	m.Stop()

	st := m.Status()
	require.Len(t, st.ProcessedFiles, 1)
	result := st.ProcessedFiles[0]
	assert.Equal(t, "completed", result.Status)
	require.Len(t, result.Processes, 1)

	// The in-flight request ran to completion rather than being canceled
	// with the poll loop.
	assert.NotContains(t, result.Processes[0].Error, "context canceled")
	assert.Contains(t, result.Processes[0].Error, "500")
}

func TestGenerateMetadata(t *testing.T) {
	m := newTestManager(t)
	m.resolver.AddRule("ENV", []string{ProcMakeSeamless}, "Environment")
	writeTestPNG(t, filepath.Join(m.watchDir, "ENV_rock_cliff_v02.png"))

	m.ProcessFile(context.Background(), "ENV_rock_cliff_v02.png")

	meta, path, err := m.GenerateMetadata()
	require.NoError(t, err)
	assert.FileExists(t, path)
	require.Len(t, meta.Resources, 1)

	res := meta.Resources[0]
	assert.Equal(t, "Environment", res.ResourceType)
	assert.Equal(t, "rock", res.Material)
	assert.Equal(t, "cliff", res.Attribute)
	assert.Equal(t, "v02", res.Version)
}
