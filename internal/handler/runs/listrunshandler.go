package runs

import (
	"errors"
	"net/http"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/httputil"
	"github.com/neboloop/promptpulse/internal/svc"
	"github.com/neboloop/promptpulse/internal/types"
)

const maxRuns = 200

// List recent runs, newest first
func ListRunsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := httputil.QueryInt(r, "limit", 20)
		if limit <= 0 || limit > maxRuns {
			limit = maxRuns
		}
		list, err := svcCtx.DB.ListRuns(r.Context(), limit)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		if list == nil {
			list = []db.Run{}
		}
		httputil.OkJSON(w, &types.ListRunsResponse{Runs: list, Total: len(list)})
	}
}

// Get one run by ID
func GetRunHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := svcCtx.DB.GetRun(r.Context(), httputil.PathVar(r, "id"))
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "run not found")
			return
		}
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.OkJSON(w, &types.RunResponse{Run: run})
	}
}
