package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/payroll-engine/payroll"
)

// Warmer regenerates the report in the background so the first
// /getPayRoll after an upload is served from cache. Every run recomputes
// from storage and overwrites whatever is cached.
//
//	warmer := report.NewWarmer(svc, time.Minute, logger)
//	warmer.Start()
//	defer warmer.Stop()
type Warmer struct {
	Service  *Service
	Interval time.Duration
	Logger   *zap.Logger

	ticker  *time.Ticker
	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewWarmer creates a warmer. An interval <= 0 means it only runs on Kick.
func NewWarmer(svc *Service, interval time.Duration, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{
		Service:  svc,
		Interval: interval,
		Logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Start begins warming in a goroutine.
func (wm *Warmer) Start() {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if wm.stop != nil {
		return
	}
	wm.stop = make(chan struct{})
	if wm.Interval > 0 {
		wm.ticker = time.NewTicker(wm.Interval)
	}

	wm.wg.Add(1)
	go wm.run()

	wm.Logger.Info("report warmer started", zap.Duration("interval", wm.Interval))
}

// Stop halts the warmer and waits for an in-flight run to finish.
func (wm *Warmer) Stop() {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if wm.stop == nil {
		return
	}
	if wm.ticker != nil {
		wm.ticker.Stop()
	}
	close(wm.stop)
	wm.wg.Wait()
	wm.stop = nil
	wm.Logger.Info("report warmer stopped")
}

// Kick requests a run without blocking. Kicks coalesce while one is pending.
func (wm *Warmer) Kick() {
	select {
	case wm.trigger <- struct{}{}:
	default:
	}
}

func (wm *Warmer) run() {
	defer wm.wg.Done()

	var tick <-chan time.Time
	if wm.ticker != nil {
		tick = wm.ticker.C
	}

	for {
		select {
		case <-tick:
			wm.warm()
		case <-wm.trigger:
			wm.warm()
		case <-wm.stop:
			return
		}
	}
}

func (wm *Warmer) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := wm.Service.Refresh(ctx)
	if err != nil && !errors.Is(err, payroll.ErrEmptyReportSource) {
		wm.Logger.Warn("report warm-up failed", zap.Error(err))
	}
}
