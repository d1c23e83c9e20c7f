package runs

import (
	"errors"
	"net/http"

	"github.com/neboloop/promptpulse/internal/httputil"
	"github.com/neboloop/promptpulse/internal/svc"
	"github.com/neboloop/promptpulse/internal/types"
)

// Start a manual run; the body is optional
func RunNowHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RunNowRequest
		if err := httputil.DecodeJSON(r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
			httputil.Error(w, err)
			return
		}
		run, err := svcCtx.RunNow(r.Context(), req.Prompt, req.Model)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, &types.RunResponse{Run: run})
	}
}
