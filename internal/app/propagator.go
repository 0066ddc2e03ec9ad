package app

import (
	"fmt"

	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/log"
)

// OptionsStore persists the last applied control options.
type OptionsStore interface {
	SaveOptions(opts detector.Options) error
}

// Propagator applies control-panel options: the mirror flag goes to the
// presenter and the whole options object goes to the engine, on every call.
type Propagator struct {
	presenter Presenter
	engine    detector.Engine
	store     OptionsStore
	logger    log.Logger
}

// NewPropagator creates a Propagator. store may be nil.
func NewPropagator(presenter Presenter, engine detector.Engine, store OptionsStore, logger log.Logger) *Propagator {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Propagator{
		presenter: presenter,
		engine:    engine,
		store:     store,
		logger:    logger.WithField("component", "propagator"),
	}
}

// Apply forwards opts verbatim. An engine error is returned after the mirror
// flag has been set; a persistence error is only logged.
func (p *Propagator) Apply(opts detector.Options) error {
	p.presenter.SetMirror(opts.SelfieMode)

	if err := p.engine.SetOptions(opts); err != nil {
		p.logger.Errorf("engine rejected options: %v", err)
		return fmt.Errorf("set engine options: %w", err)
	}

	if p.store != nil {
		if err := p.store.SaveOptions(opts); err != nil {
			p.logger.Warnf("persist options: %v", err)
		}
	}
	return nil
}
