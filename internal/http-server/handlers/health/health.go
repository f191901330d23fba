package health

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"qiming/lib/api/response"
)

type status struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Check reports service liveness.
func Check() http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(status{
			Status: "ok",
			Uptime: time.Since(started).Truncate(time.Second).String(),
		}))
	}
}
