package settings

import (
	"errors"
	"net/http"

	"github.com/neboloop/promptpulse/internal/httputil"
	settingspkg "github.com/neboloop/promptpulse/internal/settings"
	"github.com/neboloop/promptpulse/internal/svc"
	"github.com/neboloop/promptpulse/internal/types"
)

// Replace the settings record
func UpdateSettingsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingspkg.Settings
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		set, err := svcCtx.Settings.Save(r.Context(), req)
		writeSettings(w, set, err)
	}
}

// Change some settings fields
func PatchSettingsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingspkg.Patch
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if req.Empty() {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "no fields to update")
			return
		}
		set, err := svcCtx.Settings.Update(r.Context(), req)
		writeSettings(w, set, err)
	}
}

// Restore the default settings
func ResetSettingsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := svcCtx.Settings.Reset(r.Context())
		writeSettings(w, set, err)
	}
}

func writeSettings(w http.ResponseWriter, set settingspkg.Settings, err error) {
	if errors.Is(err, settingspkg.ErrInvalidHour) {
		err = httputil.WithStatus(http.StatusBadRequest, err)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OkJSON(w, &types.SettingsResponse{Settings: set})
}
