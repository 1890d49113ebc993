package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/settings"
)

type setFlagRequest struct {
	Value *bool `json:"value" validate:"required"`
}

type flagResponse struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// SettingsHandler reads and writes preference flags.
type SettingsHandler struct {
	flags  *settings.Flags
	logger *logrus.Logger
}

// NewSettingsHandler creates the settings handler.
func NewSettingsHandler(flags *settings.Flags, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{flags: flags, logger: logger}
}

// Get handles GET /api/settings/{flag}.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("flag")
	if !settings.IsFlag(key) {
		writeError(w, http.StatusNotFound, "unknown setting", kindMissing)
		return
	}
	writeJSON(w, http.StatusOK, flagResponse{Key: key, Value: h.flags.Bool(key)})
}

// Put handles PUT /api/settings/{flag}.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("flag")
	var req setFlagRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	if err := h.flags.SetBool(key, *req.Value); err != nil {
		if errors.Is(err, settings.ErrUnknownFlag) {
			writeError(w, http.StatusNotFound, "unknown setting", kindMissing)
			return
		}
		h.logger.WithError(err).WithField("key", key).Error("Failed to save setting")
		writeError(w, http.StatusInternalServerError, "Failed to save setting", kindStorage)
		return
	}
	writeJSON(w, http.StatusOK, flagResponse{Key: key, Value: *req.Value})
}
