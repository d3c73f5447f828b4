package services

import (
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/desertthunder/marquee/internal/models"
)

// ProgressFunc receives progress snapshots. It is called from the transport's
// goroutine and must not block.
type ProgressFunc func(models.UploadProgress)

// ProgressMode selects how upload progress is reported.
type ProgressMode string

const (
	// ProgressAuto reports exact progress from bytes read by the transport,
	// or indeterminate progress when the length is unknown.
	ProgressAuto ProgressMode = "auto"
	// ProgressSimulated climbs toward a ceiling on a ticker and snaps to 100 on completion.
	ProgressSimulated ProgressMode = "simulated"
)

// ParseProgressMode maps a config value to a mode, defaulting to auto.
func ParseProgressMode(s string) ProgressMode {
	if ProgressMode(s) == ProgressSimulated {
		return ProgressSimulated
	}
	return ProgressAuto
}

// progressReader counts bytes pulled through it and reports each read.
type progressReader struct {
	rc     io.ReadCloser
	total  int64
	sent   atomic.Int64
	report func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.rc.Read(b)
	if n > 0 {
		sent := p.sent.Add(int64(n))
		if p.report != nil {
			p.report(sent, p.total)
		}
	}
	return n, err
}

func (p *progressReader) Close() error {
	return p.rc.Close()
}

// Sent returns the bytes read so far.
func (p *progressReader) Sent() int64 {
	return p.sent.Load()
}

// tracker turns byte counts into [models.UploadProgress] for one request.
type tracker struct {
	mode    ProgressMode
	ceiling float64
	tick    time.Duration
	fn      ProgressFunc

	mu      sync.Mutex
	percent float64
	stop    chan struct{}
	done    sync.WaitGroup
}

func newTracker(mode ProgressMode, ceiling float64, tick time.Duration, fn ProgressFunc) *tracker {
	if ceiling <= 0 || ceiling >= 100 {
		ceiling = 90
	}
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	return &tracker{mode: mode, ceiling: ceiling, tick: tick, fn: fn}
}

func (t *tracker) emit(p models.UploadProgress) {
	if t.fn != nil {
		t.fn(p)
	}
}

// wrap returns a reader that reports byte-level progress in auto mode.
func (t *tracker) wrap(rc io.ReadCloser, total int64) *progressReader {
	pr := &progressReader{rc: rc, total: total}
	if t.mode == ProgressAuto {
		pr.report = func(sent, total int64) {
			t.emit(models.ExactProgress(sent, total))
		}
	}
	return pr
}

// start begins the simulated climb. It is a no-op in auto mode.
func (t *tracker) start(sent func() int64) {
	if t.mode != ProgressSimulated {
		return
	}
	t.stop = make(chan struct{})
	t.done.Add(1)

	go func() {
		defer t.done.Done()
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()

		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				t.mu.Lock()
				step := 2 + rand.Float64()*8
				t.percent = min(t.percent+step, t.ceiling)
				p := models.UploadProgress{Percent: t.percent, BytesSent: sent()}
				t.mu.Unlock()
				t.emit(p)
			}
		}
	}()
}

// finish stops the simulation and snaps to 100.
func (t *tracker) finish(sent, total int64) {
	if t.stop != nil {
		close(t.stop)
		t.done.Wait()
		t.stop = nil
	}
	t.emit(models.CompleteProgress(sent, total))
}

// halt stops the simulation without reporting completion.
func (t *tracker) halt() {
	if t.stop != nil {
		close(t.stop)
		t.done.Wait()
		t.stop = nil
	}
}
