package workflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/semaphore"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/imaging"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/inference"
)

const (
	pollInterval     = 1 * time.Second
	maxParallelLimit = 10
	lodLevels        = 3
	shadowSize       = 50
	squareSize       = 512
)

var ErrInvalidParallelTasks = errors.New("max parallel tasks must be between 1 and 10")

// ProcessStep is the outcome of one step in a file's processing flow.
type ProcessStep struct {
	Name    string          `json:"name"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// FileResult is the full processing record of one watched file.
type FileResult struct {
	Filename  string        `json:"filename"`
	Status    string        `json:"status"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Processes []ProcessStep `json:"processes"`
	Error     string        `json:"error,omitempty"`
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running          bool         `json:"isRunning"`
	ProcessingQueue  []string     `json:"processingQueue"`
	ProcessedFiles   []FileResult `json:"processedFiles"`
	FailedFiles      []FileResult `json:"failedFiles"`
	TotalFiles       int          `json:"totalFiles"`
	SuccessRate      float64      `json:"successRate"`
	MaxParallelTasks int          `json:"maxParallelTasks"`
	RunningTasks     int          `json:"currentRunningTasks"`
	CPUPercent       float64      `json:"cpuPercent"`
	MemoryPercent    float64      `json:"memoryPercent"`
}

// Manager watches a directory for sorted artwork and runs the processing
// flow the naming convention resolves for each new file.
type Manager struct {
	watchDir  string
	outputDir string
	resolver  *Resolver
	inference *inference.Client

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	seen         map[string]bool
	queue        []string
	processed    []FileResult
	failed       []FileResult
	maxParallel  int64
	runningTasks int
	sem          *semaphore.Weighted
	wg           sync.WaitGroup
}

func NewManager(watchDir, outputDir string, resolver *Resolver, inferenceClient *inference.Client, maxParallel int) (*Manager, error) {
	if maxParallel < 1 || maxParallel > maxParallelLimit {
		return nil, ErrInvalidParallelTasks
	}

	for _, dir := range []string{watchDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Manager{
		watchDir:    watchDir,
		outputDir:   outputDir,
		resolver:    resolver,
		inference:   inferenceClient,
		seen:        make(map[string]bool),
		maxParallel: int64(maxParallel),
		sem:         semaphore.NewWeighted(int64(maxParallel)),
	}, nil
}

// Start begins polling the watch directory. Starting a running manager is a
// no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		slog.Warn("workflow manager already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.watch(ctx)
	slog.Info("workflow monitoring started", "dir", m.watchDir)
}

// Stop halts polling and waits for in-flight files to finish. Stopping a
// stopped manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.wg.Wait()
	slog.Info("workflow monitoring stopped")
}

// Running reports whether the watcher is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) watch(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scan(ctx)
		}
	}
}

func (m *Manager) scan(ctx context.Context) {
	entries, err := os.ReadDir(m.watchDir)
	if err != nil {
		slog.Error("read watch directory", "dir", m.watchDir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		m.mu.Lock()
		already := m.seen[name]
		if !already {
			m.seen[name] = true
		}
		m.mu.Unlock()
		if already {
			continue
		}

		slog.Info("new file detected", "file", name)
		m.wg.Add(1)
		// Stopping the poll loop must not abort files already picked up;
		// Stop waits on the WaitGroup for them instead.
		fileCtx := context.WithoutCancel(ctx)
		go func() {
			defer m.wg.Done()
			m.ProcessFile(fileCtx, name)
		}()
	}
}

// ProcessFile runs the resolved processing flow for one file in the watch
// directory, blocking until a parallel task slot is free.
func (m *Manager) ProcessFile(ctx context.Context, filename string) FileResult {
	result := FileResult{
		Filename:  filename,
		Status:    "processing",
		StartTime: time.Now(),
	}

	m.mu.Lock()
	m.queue = append(m.queue, filename)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.queue = removeString(m.queue, filename)
		m.mu.Unlock()
	}()

	// SetMaxParallelTasks swaps m.sem for a fresh semaphore, so the slot
	// must be released on the same semaphore it was acquired from.
	m.mu.Lock()
	sem := m.sem
	m.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		result.EndTime = time.Now()
		m.record(result)
		return result
	}
	m.mu.Lock()
	m.runningTasks++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.runningTasks--
		m.mu.Unlock()
		sem.Release(1)
	}()

	steps, err := m.executeFlow(ctx, filename)
	result.Processes = steps
	result.EndTime = time.Now()
	if err != nil {
		slog.Error("file processing failed", "file", filename, "error", err)
		result.Status = "failed"
		result.Error = err.Error()
	} else {
		slog.Info("file processed", "file", filename)
		result.Status = "completed"
	}

	m.record(result)
	return result
}

func (m *Manager) record(result FileResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result.Status == "completed" {
		m.processed = append(m.processed, result)
	} else {
		m.failed = append(m.failed, result)
	}
}

func (m *Manager) executeFlow(ctx context.Context, filename string) ([]ProcessStep, error) {
	resolution := m.resolver.Resolve(filename)
	inputPath := filepath.Join(m.watchDir, filename)
	outputName := "processed_" + filename

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	current, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	steps := make([]ProcessStep, 0, len(resolution.Processes))
	for _, name := range resolution.Processes {
		step := ProcessStep{Name: name, Status: "completed"}

		next, err := m.runStep(ctx, name, current, raw, filename, outputName, &step)
		if err != nil {
			step.Status = "failed"
			step.Error = err.Error()
		} else if next != nil {
			current = next
		}
		steps = append(steps, step)
	}

	if err := m.savePNG(current, outputName); err != nil {
		return steps, err
	}
	return steps, nil
}

func (m *Manager) runStep(ctx context.Context, name string, current image.Image, raw []byte, filename, outputName string, step *ProcessStep) (image.Image, error) {
	switch name {
	case ProcSegment:
		return m.segment(ctx, raw, filename)

	case ProcAlignBottom:
		return imaging.AlignBottom(current, 0), nil

	case ProcGenerateShadow:
		return imaging.GenerateShadow(current, shadowSize), nil

	case ProcResizeSquare:
		return imaging.ResizeSquare(current, squareSize), nil

	case ProcSharpen:
		return imaging.Sharpen(current), nil

	case ProcMakeSeamless:
		return imaging.MakeSeamless(current), nil

	case ProcGenLOD:
		base := strings.TrimSuffix(outputName, filepath.Ext(outputName))
		for i, lod := range imaging.GenerateLODs(current, lodLevels) {
			if err := m.savePNG(lod, fmt.Sprintf("%s_lod%d.png", base, i)); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case ProcGenPBR:
		return nil, m.generateNormalMap(ctx, raw, filename, outputName)

	case ProcBoxCollision:
		box := imaging.CollisionBox(current)
		details, _ := json.Marshal(map[string][4]int{
			"collisionBox": {box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
		})
		step.Details = details
		return nil, nil

	case ProcDefault:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown process: %s", name)
	}
}

func (m *Manager) segment(ctx context.Context, raw []byte, filename string) (image.Image, error) {
	if m.inference == nil {
		return nil, errors.New("inference client not configured")
	}
	result, err := m.inference.Segment(ctx, raw, filename, nil, nil)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("segmentation failed: %s", result.Error)
	}
	return decodeBase64PNG(result.Image)
}

func (m *Manager) generateNormalMap(ctx context.Context, raw []byte, filename, outputName string) error {
	if m.inference == nil {
		return errors.New("inference client not configured")
	}
	result, err := m.inference.GenerateNormalMap(ctx, raw, filename, 0)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("normal map generation failed: %s", result.Error)
	}
	img, err := decodeBase64PNG(result.Image)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(outputName, filepath.Ext(outputName))
	return m.savePNG(img, base+"_Normal.png")
}

func (m *Manager) savePNG(img image.Image, name string) error {
	path := filepath.Join(m.outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Status reports pipeline progress plus host CPU and memory usage.
func (m *Manager) Status() Status {
	m.mu.Lock()
	st := Status{
		Running:          m.running,
		ProcessingQueue:  append([]string(nil), m.queue...),
		ProcessedFiles:   append([]FileResult(nil), m.processed...),
		FailedFiles:      append([]FileResult(nil), m.failed...),
		MaxParallelTasks: int(m.maxParallel),
		RunningTasks:     m.runningTasks,
	}
	m.mu.Unlock()

	st.TotalFiles = len(st.ProcessedFiles) + len(st.FailedFiles)
	if st.TotalFiles > 0 {
		st.SuccessRate = float64(len(st.ProcessedFiles)) / float64(st.TotalFiles) * 100
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		st.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.MemoryPercent = vm.UsedPercent
	}

	return st
}

// SetMaxParallelTasks adjusts the parallel task bound. Takes effect for
// files queued after the call.
func (m *Manager) SetMaxParallelTasks(n int) error {
	if n < 1 || n > maxParallelLimit {
		return ErrInvalidParallelTasks
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxParallel = int64(n)
	m.sem = semaphore.NewWeighted(int64(n))
	slog.Info("batch configuration updated", "maxParallelTasks", n)
	return nil
}

// MaxParallelTasks returns the current parallel task bound.
func (m *Manager) MaxParallelTasks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.maxParallel)
}

// ClearHistory drops the processed and failed file records.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = nil
	m.failed = nil
	slog.Info("workflow history cleared")
}

// Metadata is the export manifest for all processed resources.
type Metadata struct {
	GeneratedAt string             `json:"generatedAt"`
	Resources   []ResourceMetadata `json:"resources"`
}

type ResourceMetadata struct {
	Filename     string  `json:"filename"`
	Status       string  `json:"status"`
	ResourceType string  `json:"resourceType"`
	Material     string  `json:"material"`
	Attribute    string  `json:"attribute,omitempty"`
	Version      string  `json:"version,omitempty"`
	DurationSecs float64 `json:"durationSecs"`
}

// GenerateMetadata writes a timestamped JSON manifest of processed
// resources to the output directory and returns it.
func (m *Manager) GenerateMetadata() (*Metadata, string, error) {
	m.mu.Lock()
	records := append([]FileResult(nil), m.processed...)
	m.mu.Unlock()

	meta := &Metadata{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Resources:   make([]ResourceMetadata, 0, len(records)),
	}

	for _, rec := range records {
		resolution := m.resolver.Resolve(rec.Filename)
		meta.Resources = append(meta.Resources, ResourceMetadata{
			Filename:     rec.Filename,
			Status:       rec.Status,
			ResourceType: resolution.ResourceType,
			Material:     resolution.MaterialName,
			Attribute:    resolution.Attribute,
			Version:      resolution.Version,
			DurationSecs: rec.EndTime.Sub(rec.StartTime).Seconds(),
		})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshal metadata: %w", err)
	}

	name := fmt.Sprintf("resources_metadata_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(m.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, "", fmt.Errorf("write metadata: %w", err)
	}

	slog.Info("metadata generated", "path", path, "resources", len(meta.Resources))
	return meta, path, nil
}

func removeString(xs []string, s string) []string {
	out := xs[:0]
	for _, v := range xs {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func decodeBase64PNG(data string) (image.Image, error) {
	if i := strings.Index(data, ","); i >= 0 && strings.HasPrefix(data, "data:") {
		data = data[i+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
