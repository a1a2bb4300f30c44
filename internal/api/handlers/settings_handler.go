package handlers

import (
	"errors"
	"net/http"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/service"
)

type PutSettingRequestBody struct {
	UserID string `json:"user_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type SettingsHandler struct {
	settingsService *service.SettingsService
}

func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSetting returns one setting, falling back to the key's default
// when the user never set it.
func (h *SettingsHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	key := r.PathValue("key")

	value, err := h.settingsService.Get(user, key)
	if err != nil {
		if errors.Is(err, service.ErrUnknownKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Error trying to read setting: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": user,
		"key":     key,
		"value":   value,
	})
}

// PutSetting validates and stores one setting; the response carries
// the canonical stored value (aliases normalized, times zero-padded).
func (h *SettingsHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var reqBody PutSettingRequestBody
	if err := decodeJSON(r, &reqBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reqBody.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	stored, err := h.settingsService.Set(reqBody.UserID, reqBody.Key, reqBody.Value)
	if err != nil {
		if errors.Is(err, service.ErrUnknownKey) || errors.Is(err, service.ErrBadFlag) ||
			errors.Is(err, dates.ErrUnknownZone) || errors.Is(err, dates.ErrBadClock) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Error trying to save setting: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": reqBody.UserID,
		"key":     reqBody.Key,
		"value":   stored,
	})
}
