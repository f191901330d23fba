package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"qiming/entity"
	"qiming/internal/http-server/middleware/iplimit"
	"qiming/lib/api/cont"
	"qiming/lib/api/response"
	"qiming/lib/apperr"
	"qiming/lib/sl"
)

type Core interface {
	ValidateCode(code, deviceId, clientIp string) (*entity.TokenResult, error)
	RecoverToken(code, deviceId string) (*entity.TokenResult, error)
	AuthStatus(userId string) (*entity.AuthStatus, error)
}

// Validate activates an authorization code and returns the access token.
func Validate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.auth"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.CodeRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			renderError(w, r, apperr.BadRequest(err.Error()))
			return
		}

		result, err := handler.ValidateCode(req.Code, req.DeviceId, iplimit.ClientIp(r))
		if err != nil {
			logger.Error("validate code", sl.Err(err))
			renderError(w, r, err)
			return
		}
		logger.Debug("code activated")

		render.JSON(w, r, response.Ok(result))
	}
}

// Recover reissues the token for an already activated code on the same device.
func Recover(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.auth"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.CodeRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			renderError(w, r, apperr.BadRequest(err.Error()))
			return
		}

		result, err := handler.RecoverToken(req.Code, req.DeviceId)
		if err != nil {
			logger.Error("recover token", sl.Err(err))
			renderError(w, r, err)
			return
		}
		logger.Debug("token recovered")

		render.JSON(w, r, response.Ok(result))
	}
}

// Status reports the activation state of the authenticated identity.
func Status(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.auth"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := cont.GetIdentity(r.Context())
		status, err := handler.AuthStatus(identity.UserId)
		if err != nil {
			logger.Error("auth status", sl.Err(err))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(status))
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	render.Status(r, e.Status)
	render.JSON(w, r, response.Err(e))
}
