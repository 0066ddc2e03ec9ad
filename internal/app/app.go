// Package app runs the per-frame pipeline: camera, inference engine,
// overlay, gesture metric and 3D grid, plus the control options path.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/pinchview/internal/aggregate"
	"github.com/ayusman/pinchview/internal/capture"
	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/grid"
	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
	"github.com/ayusman/pinchview/internal/publish"
	"github.com/ayusman/pinchview/internal/render"
)

// ErrNotRunning is returned by ApplyOptions once the event loop has stopped.
var ErrNotRunning = errors.New("app is not running")

// Config holds the collaborators of an App. Grid, Presenter, OptionsStore
// and Dispatcher are optional.
type Config struct {
	Camera       capture.Camera
	Engine       detector.Engine
	Canvas       render.Canvas
	Grid         grid.Widget
	Presenter    Presenter
	OptionsStore OptionsStore
	Dispatcher   *publish.Dispatcher

	Distance metric.Mode
	Offset   aggregate.OffsetMode
	// Options are applied when Run starts.
	Options detector.Options

	Logger log.Logger
}

type optionsRequest struct {
	opts  detector.Options
	reply chan error
}

// App owns the event loop. Frames and option changes are handled one at a
// time, in arrival order, on the goroutine that calls Run.
type App struct {
	config     Config
	consumer   *Consumer
	propagator *Propagator
	logger     log.Logger

	optionsCh chan optionsRequest
	done      chan struct{}

	mu      sync.RWMutex
	options detector.Options
	reading metric.Reading
}

// New wires an App and registers its consumer with the engine.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	config.Logger = logger
	if config.Presenter == nil {
		config.Presenter = nopPresenter{}
	}

	a := &App{
		config:    config,
		logger:    logger.WithField("component", "app"),
		optionsCh: make(chan optionsRequest),
		done:      make(chan struct{}),
		options:   config.Options,
		reading:   metric.Initial(),
	}

	a.consumer = NewConsumer(ConsumerConfig{
		Canvas:    config.Canvas,
		Grid:      config.Grid,
		Presenter: config.Presenter,
		Params: Params{
			Topology:   config.Engine.Topology(),
			Calculator: metric.Calculator{Mode: config.Distance},
			Policy:     metric.LastHandWins{},
			Offset:     config.Offset,
		},
		MaxHands:  config.Options.MaxNumHands,
		OnReading: a.onReading,
		Logger:    logger,
	})
	a.propagator = NewPropagator(config.Presenter, config.Engine, config.OptionsStore, logger)

	config.Engine.OnResults(a.consumer.Process)
	return a
}

func (a *App) onReading(r metric.Reading) {
	a.mu.Lock()
	a.reading = r
	a.mu.Unlock()

	if a.config.Dispatcher != nil && !a.config.Dispatcher.Offer(r) {
		a.logger.Debugf("reading queue full, dropped %s", r.Value)
	}
}

// Options returns the last applied control options.
func (a *App) Options() detector.Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.options
}

// Reading returns the displayed gesture metric.
func (a *App) Reading() metric.Reading {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reading
}

// ApplyOptions hands opts to the event loop and waits for the result.
func (a *App) ApplyOptions(ctx context.Context, opts detector.Options) error {
	req := optionsRequest{opts: opts, reply: make(chan error, 1)}

	select {
	case a.optionsCh <- req:
	case <-a.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) apply(opts detector.Options) error {
	err := a.propagator.Apply(opts)

	a.mu.Lock()
	a.options = opts
	a.mu.Unlock()
	a.consumer.SetMaxHands(opts.MaxNumHands)
	return err
}

// Run opens the camera, applies the initial options and processes frames
// until ctx is cancelled. It returns nil on cancellation.
func (a *App) Run(ctx context.Context) error {
	defer close(a.done)

	cam := a.config.Camera
	if err := cam.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			a.logger.Warnf("close camera: %v", err)
		}
	}()

	if err := a.apply(a.config.Options); err != nil {
		a.logger.Warnf("initial options: %v", err)
	}

	fps := cam.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.logger.Infof("pipeline started at %d fps", fps)
	defer a.logger.Infof("pipeline stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-a.optionsCh:
			req.reply <- a.apply(req.opts)
		case <-ticker.C:
			a.processFrame(ctx)
		}
	}
}

func (a *App) processFrame(ctx context.Context) {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		a.logger.Debugf("read frame: %v", err)
		return
	}
	defer frame.Close()

	if err := a.config.Engine.Send(ctx, frame); err != nil {
		a.logger.Warnf("inference: %v", err)
	}
}
