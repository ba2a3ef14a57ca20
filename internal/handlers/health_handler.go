package handlers

import (
	"context"
	"net/http"
	"time"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Stats reports runtime counters for one dependency, such as pool usage.
type Stats func() map[string]interface{}

// Health answers 200 when every check passes and 503 naming the failures
// otherwise. Stats are included in either response.
func Health(checks map[string]Check, stats map[string]Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}

		body := map[string]interface{}{"status": "ok"}
		if len(stats) > 0 {
			collected := make(map[string]interface{}, len(stats))
			for name, stat := range stats {
				collected[name] = stat()
			}
			body["stats"] = collected
		}

		if len(failed) > 0 {
			body["status"] = "unavailable"
			body["failed"] = failed
			respondJSON(w, http.StatusServiceUnavailable, body)
			return
		}

		respondJSON(w, http.StatusOK, body)
	}
}
