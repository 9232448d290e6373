package handlers

import (
	"context"
	"net/http"

	"helpdesk/internal/utils"
)

// Health reports ok, or 503 when ping (the storage backend) fails.
func Health(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				utils.Error(w, http.StatusServiceUnavailable, "storage unavailable")
				return
			}
		}
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
