package app

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ayusman/pinchview/internal/detector"
)

type memoryOptionsStore struct {
	saved []detector.Options
	err   error
}

func (s *memoryOptionsStore) SaveOptions(opts detector.Options) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, opts)
	return nil
}

func TestPropagator_Apply(t *testing.T) {
	presenter := &spyPresenter{}
	engine := detector.NewMockEngine()
	store := &memoryOptionsStore{}
	p := NewPropagator(presenter, engine, store, nil)

	opts := detector.DefaultOptions()
	opts.SelfieMode = true
	if err := p.Apply(opts); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := presenter.Mirrors(); !reflect.DeepEqual(got, []bool{true}) {
		t.Errorf("mirrors = %v, want [true]", got)
	}
	if got := engine.Options(); len(got) != 1 || got[0] != opts {
		t.Errorf("engine options = %+v, want exactly %+v", got, opts)
	}
	if len(store.saved) != 1 {
		t.Errorf("saved %d times, want 1", len(store.saved))
	}

	t.Run("redundant apply forwards again", func(t *testing.T) {
		if err := p.Apply(opts); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got := len(engine.Options()); got != 2 {
			t.Errorf("engine received %d updates, want 2", got)
		}
		if got := presenter.Mirrors(); !reflect.DeepEqual(got, []bool{true, true}) {
			t.Errorf("mirrors = %v", got)
		}
	})

	t.Run("selfie off clears mirror", func(t *testing.T) {
		opts.SelfieMode = false
		p.Apply(opts)
		mirrors := presenter.Mirrors()
		if mirrors[len(mirrors)-1] {
			t.Error("mirror should be off")
		}
	})
}

func TestPropagator_EngineError(t *testing.T) {
	presenter := &spyPresenter{}
	engine := detector.NewMockEngine()
	engineErr := errors.New("engine busy")
	engine.SetError(engineErr)
	store := &memoryOptionsStore{}
	p := NewPropagator(presenter, engine, store, nil)

	opts := detector.DefaultOptions()
	opts.SelfieMode = true
	err := p.Apply(opts)
	if !errors.Is(err, engineErr) {
		t.Fatalf("Apply() error = %v, want %v", err, engineErr)
	}
	if got := presenter.Mirrors(); !reflect.DeepEqual(got, []bool{true}) {
		t.Errorf("mirror should still be set, got %v", got)
	}
	if len(store.saved) != 0 {
		t.Error("rejected options should not be persisted")
	}
}

func TestPropagator_StoreErrorIsNotReturned(t *testing.T) {
	engine := detector.NewMockEngine()
	p := NewPropagator(nil, engine, &memoryOptionsStore{err: errors.New("disk full")}, nil)

	if err := p.Apply(detector.DefaultOptions()); err != nil {
		t.Errorf("Apply() error = %v, want nil", err)
	}
	if len(engine.Options()) != 1 {
		t.Error("engine should still receive the options")
	}
}
