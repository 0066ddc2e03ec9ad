package app

import (
	"context"

	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/metric"
	"github.com/ayusman/pinchview/internal/publish"
	"github.com/ayusman/pinchview/internal/store"
)

// SettingsOptions keeps control options in the settings table.
type SettingsOptions struct {
	repo *store.SettingsRepository
}

var _ OptionsStore = (*SettingsOptions)(nil)

// NewSettingsOptions wraps a settings repository.
func NewSettingsOptions(repo *store.SettingsRepository) *SettingsOptions {
	return &SettingsOptions{repo: repo}
}

// SaveOptions implements OptionsStore.
func (s *SettingsOptions) SaveOptions(opts detector.Options) error {
	return s.repo.SetJSON(store.KeyOptions, opts)
}

// LoadOptions returns the last saved options. It returns store.ErrNotFound
// when none were saved, and an error for saved options that no longer validate.
func (s *SettingsOptions) LoadOptions() (detector.Options, error) {
	var opts detector.Options
	if err := s.repo.GetJSON(store.KeyOptions, &opts); err != nil {
		return detector.Options{}, err
	}
	if err := opts.Validate(); err != nil {
		return detector.Options{}, err
	}
	return opts, nil
}

// History records accepted readings under one session.
type History struct {
	readings  *store.ReadingRepository
	sessionID string
}

var _ publish.Publisher = (*History)(nil)

// NewHistory records into readings for sessionID.
func NewHistory(readings *store.ReadingRepository, sessionID string) *History {
	return &History{readings: readings, sessionID: sessionID}
}

// Publish implements publish.Publisher.
func (h *History) Publish(_ context.Context, r metric.Reading) error {
	_, err := h.readings.Add(h.sessionID, r.Value, r.Distance, r.Hand, r.Label.String())
	return err
}
