package settings

import (
	"net/http"

	"github.com/neboloop/promptpulse/internal/httputil"
	"github.com/neboloop/promptpulse/internal/svc"
	"github.com/neboloop/promptpulse/internal/types"
)

// Get the stored settings (defaults fill missing keys)
func GetSettingsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := svcCtx.Settings.Load(r.Context())
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, &types.SettingsResponse{Settings: set})
	}
}
