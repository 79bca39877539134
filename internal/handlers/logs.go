package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/types"
)

// LogRouter exposes the audit log to admins. It is read-only.
func LogRouter(r chi.Router, api *API) {
	logs := api.Services.ActionLogs

	r.Use(api.Auth.RequireAuth, api.Guard.RequireAdmin)
	r.Get("/actions", func(w http.ResponseWriter, r *http.Request) {
		entries, err := logs.List(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]types.ActionLog{types.KindActionLog.String(): entries})
	})
	r.Get("/actions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		entry, err := logs.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	})
}

func (a *API) statistics(w http.ResponseWriter, r *http.Request) {
	total, err := a.Services.Submissions.Count(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total_submissions": total})
}
