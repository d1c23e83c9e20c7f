package schedule

import (
	"net/http"

	"github.com/neboloop/promptpulse/internal/httputil"
	"github.com/neboloop/promptpulse/internal/svc"
	"github.com/neboloop/promptpulse/internal/types"
)

// Get the next-run countdown and quiet-hours state
func GetStatusHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svcCtx.Status(r.Context())
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, &types.StatusResponse{
			Status:   st,
			Alarm:    svcCtx.Scheduler.Next(),
			Interval: svcCtx.Scheduler.Interval().String(),
		})
	}
}

// Clear the alarm and start a fresh interval from now
func ResetScheduleHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alarm := svcCtx.Scheduler.Reset(r.Context())
		httputil.OkJSON(w, &types.ResetScheduleResponse{Alarm: alarm})
	}
}
