package engine

import (
	"context"
	"sync"
	"time"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
)

// PoseSink receives interpolated poses from a running Player, one per tick,
// on the player's goroutine.
type PoseSink func(time float64, pose []document.PointPose)

// Player drives animation playback against the wall clock. It ticks at the
// animation's frame rate, stops at the animation's duration, and optionally
// loops. At most one tick callback is pending at a time, and stopping cancels
// it: a late tick never emits after Stop returns.
type Player struct {
	mu     sync.Mutex
	anim   *document.Animation
	sink   PoseSink
	cancel context.CancelFunc
	done   chan struct{} // closed when the tick goroutine exits

	playing   bool
	startedAt time.Time
	offset    float64 // playback position when playback last started
}

// NewPlayer creates a player for the given animation. The sink must not be nil.
func NewPlayer(anim *document.Animation, sink PoseSink) *Player {
	return &Player{anim: anim, sink: sink}
}

// Play starts playback from the current position. Calling Play on a playing
// player is a no-op.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return
	}
	if p.offset >= p.anim.Duration {
		p.offset = 0
	}

	fps := p.anim.FPS
	if fps <= 0 {
		fps = 24
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.playing = true
	p.startedAt = time.Now()

	go func() {
		defer close(done)
		p.run(ctx, time.Duration(float64(time.Second)/fps))
	}()
}

func (p *Player) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !p.step(now) {
				return
			}
		}
	}
}

// step advances playback to the wall-clock instant now and emits a pose.
// It returns false once playback has finished.
func (p *Player) step(now time.Time) bool {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return false
	}

	t := p.offset + now.Sub(p.startedAt).Seconds()
	duration := p.anim.Duration

	finished := false
	if t >= duration {
		if p.anim.Loop && duration > 0 {
			// Restart the clock at the wrapped position.
			for t >= duration {
				t -= duration
			}
			p.offset = t
			p.startedAt = now
		} else {
			t = duration
			p.playing = false
			p.offset = duration
			p.cancel()
			finished = true
		}
	}
	anim, sink := p.anim, p.sink
	p.mu.Unlock()

	sink(t, InterpolatePose(anim, t))
	return !finished
}

// Stop halts playback and does not return until the tick goroutine has
// exited, so no pose is emitted once Stop returns. Stop is idempotent but
// must not be called from inside the sink.
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.offset += time.Since(p.startedAt).Seconds()
	if p.offset > p.anim.Duration {
		p.offset = p.anim.Duration
	}
	p.playing = false
	p.cancel()
	done := p.done
	p.mu.Unlock()

	// A tick may already be past its playing check and mid-sink; wait for
	// the goroutine rather than racing it.
	<-done
}

// Seek moves the playback position. Seeking while playing restarts the clock
// from the new position.
func (p *Player) Seek(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t < 0 {
		t = 0
	}
	if t > p.anim.Duration {
		t = p.anim.Duration
	}
	p.offset = t
	p.startedAt = time.Now()
}

// Position returns the current playback position in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return p.offset
	}
	t := p.offset + time.Since(p.startedAt).Seconds()
	if t > p.anim.Duration {
		t = p.anim.Duration
	}
	return t
}

// Playing reports whether playback is active.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
