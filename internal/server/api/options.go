package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ayusman/pinchview/internal/detector"
)

// OptionsController reads and applies the control options.
type OptionsController interface {
	Options() detector.Options
	ApplyOptions(ctx context.Context, opts detector.Options) error
}

// OptionsHandler serves GET and PUT /api/options.
type OptionsHandler struct {
	controller OptionsController
}

// NewOptionsHandler creates an OptionsHandler.
func NewOptionsHandler(c OptionsController) *OptionsHandler {
	return &OptionsHandler{controller: c}
}

// ServeHTTP implements the http.Handler interface.
func (h *OptionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.controller.Options())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update decodes the body over the current options, so fields left out keep
// their value, then applies the result.
func (h *OptionsHandler) update(w http.ResponseWriter, r *http.Request) {
	opts := h.controller.Options()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.controller.ApplyOptions(r.Context(), opts); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, opts)
}
