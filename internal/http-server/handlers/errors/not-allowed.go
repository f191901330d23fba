package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"qiming/lib/api/response"
	"qiming/lib/apperr"
)

func NotAllowed(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := apperr.BadRequest("请求方法不允许")
		e.Status = http.StatusMethodNotAllowed
		render.Status(r, e.Status)
		render.JSON(w, r, response.Err(e))
	}
}
