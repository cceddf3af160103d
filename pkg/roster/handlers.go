package roster

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// EnqueueJobHandler handles POST /sync-jobs. An optional Idempotency-Key
// header deduplicates concurrent requests for the same run.
func EnqueueJobHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := store.Enqueue(r.Context(),
			r.Header.Get("X-User-Id"),
			r.Header.Get("Idempotency-Key"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to enqueue sync job: %v", err))
			return
		}
		writeJSON(w, http.StatusAccepted, job)
	}
}

// GetJobHandler handles GET /sync-jobs/{jobId}.
func GetJobHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")

		job, err := store.Get(r.Context(), jobID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get sync job: %v", err))
			return
		}
		if job == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("sync job %q not found", jobID))
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// ListJobsHandler handles GET /sync-jobs. Query params: state, limit.
func ListJobsHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		jobs, err := store.List(r.Context(), JobState(r.URL.Query().Get("state")), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list sync jobs: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
	}
}

// CancelJobHandler handles POST /sync-jobs/{jobId}:cancel.
func CancelJobHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")

		if err := store.Cancel(r.Context(), jobID); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to cancel sync job: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "canceled",
			"jobId":  jobID,
		})
	}
}

// Router creates a chi.Router for the roster sync API.
func Router(store *JobStore) chi.Router {
	r := chi.NewRouter()
	r.Post("/sync-jobs", EnqueueJobHandler(store))
	r.Get("/sync-jobs", ListJobsHandler(store))
	r.Get("/sync-jobs/{jobId}", GetJobHandler(store))
	r.Post("/sync-jobs/{jobId}:cancel", CancelJobHandler(store))
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
