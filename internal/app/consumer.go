package app

import (
	"time"

	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/grid"
	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
	"github.com/ayusman/pinchview/internal/render"
)

// Consumer is the per-frame entry point. It is not safe for concurrent use;
// the event loop owns it.
type Consumer struct {
	coord     *render.Coordinator
	grid      grid.Widget
	presenter Presenter
	params    Params
	maxHands  int
	fps       *FPSCounter
	now       func() time.Time
	logger    log.Logger

	reading   metric.Reading
	onReading func(metric.Reading)
}

// ConsumerConfig wires a Consumer.
type ConsumerConfig struct {
	Canvas    render.Canvas
	Grid      grid.Widget
	Presenter Presenter
	Params    Params
	// MaxHands bounds the hand count checked by FrameResult.Validate.
	MaxHands int
	// OnReading, if set, is called with every accepted reading.
	OnReading func(metric.Reading)
	Logger    log.Logger
}

// NewConsumer creates a Consumer showing the initial "0%" reading.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	presenter := cfg.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Consumer{
		coord:     render.NewCoordinator(cfg.Canvas, cfg.Params.Topology),
		grid:      cfg.Grid,
		presenter: presenter,
		params:    cfg.Params,
		maxHands:  cfg.MaxHands,
		fps:       NewFPSCounter(DefaultFPSWindow),
		now:       time.Now,
		logger:    logger.WithField("component", "consumer"),
		reading:   metric.Initial(),
		onReading: cfg.OnReading,
	}
}

// SetMaxHands updates the bound used when validating frames.
func (c *Consumer) SetMaxHands(n int) {
	c.maxHands = n
}

// Reading returns the displayed metric.
func (c *Consumer) Reading() metric.Reading {
	return c.reading
}

// Process handles one inference result: redraws the canvas, updates the
// metric and feeds the grid. Nothing in the result is fatal.
func (c *Consumer) Process(res *detector.FrameResult) {
	c.presenter.SetFPS(c.fps.Tick(c.now()))

	if res == nil {
		res = &detector.FrameResult{}
	}
	if err := res.Validate(c.maxHands); err != nil {
		c.logger.Warnf("malformed frame result: %v", err)
	}

	plan := Step(res, c.reading, c.params)

	canvas := c.coord.Canvas()
	canvas.Save()
	canvas.Clear()
	canvas.DrawImage(res.Image)
	for _, o := range plan.Overlays {
		c.coord.Draw(o.Landmarks, o.Label)
	}
	canvas.Restore()

	if plan.Updated {
		c.reading = plan.Reading
		c.presenter.SetMetric(c.reading.Value)
		if c.onReading != nil {
			c.onReading(c.reading)
		}
	}

	if c.grid == nil {
		return
	}
	if plan.Grid != nil {
		c.grid.UpdateLandmarks(plan.Grid.Landmarks, plan.Grid.Connections, plan.Grid.Groups)
	} else {
		c.grid.Clear()
	}
}
