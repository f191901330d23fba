package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"qiming/lib/api/response"
	"qiming/lib/apperr"
)

func NotFound(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := apperr.NotFound("请求的资源不存在")
		render.Status(r, e.Status)
		render.JSON(w, r, response.Err(e))
	}
}
