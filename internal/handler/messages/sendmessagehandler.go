package messages

import (
	"errors"
	"net/http"

	"github.com/neboloop/promptpulse/internal/dispatch"
	"github.com/neboloop/promptpulse/internal/httputil"
	"github.com/neboloop/promptpulse/internal/svc"
)

// Deliver one runtime message ({"action": ...}) to the dispatch table
func SendMessageHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := httputil.ReadBody(r)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		resp, err := svcCtx.Launcher.Dispatcher().DispatchRaw(r.Context(), body)
		switch {
		case err == nil:
			httputil.OkJSON(w, resp)
		case errors.Is(err, dispatch.ErrUnknownAction), errors.Is(err, dispatch.ErrMalformed):
			httputil.WriteJSON(w, http.StatusBadRequest, resp)
		default:
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, resp)
		}
	}
}

// List the actions the dispatch table accepts
func ListActionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, map[string]any{"actions": svcCtx.Launcher.Dispatcher().Actions()})
	}
}
