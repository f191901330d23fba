package name

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"qiming/entity"
	"qiming/lib/api/cont"
	"qiming/lib/api/response"
	"qiming/lib/apperr"
	"qiming/lib/sl"
)

type Core interface {
	GenerateNames(ctx context.Context, identity *entity.Identity, params *entity.GenerateParams) (*entity.GenerateResult, error)
	History(userId string, limit, offset int64) (*entity.HistoryPage, error)
	HistoryDetail(userId, recordId string) (*entity.HistoryRecord, error)
	Stats(userId string) (*entity.UsageStats, error)
	RateLimitStatus(ctx context.Context, userId string) *entity.RateLimitStatus
}

// Generate runs one naming request for the authenticated user.
func Generate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.name"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var params entity.GenerateParams
		if err := render.Bind(r, &params); err != nil {
			logger.Error("bind request", sl.Err(err))
			renderError(w, r, apperr.BadRequest(err.Error()))
			return
		}
		logger = logger.With(
			slog.String("surname", params.Surname),
			slog.String("gender", params.Gender),
		)

		identity := cont.GetIdentity(r.Context())
		result, err := handler.GenerateNames(r.Context(), identity, &params)
		if err != nil {
			logger.Error("generate names", sl.Err(err))
			renderError(w, r, err)
			return
		}
		logger.Debug("names generated", slog.Int("count", len(result.Names)))

		render.JSON(w, r, response.Ok(result))
	}
}

// History returns a page of past generations for the authenticated user.
// Accepts `limit` and `offset` query parameters.
func History(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.name"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := cont.GetIdentity(r.Context())
		limit := queryInt(r, "limit", 0)
		offset := queryInt(r, "offset", 0)

		page, err := handler.History(identity.UserId, limit, offset)
		if err != nil {
			logger.Error("history query", sl.Err(err))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(page))
	}
}

// HistoryDetail returns a single generation record by id.
func HistoryDetail(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.name"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		recordId := chi.URLParam(r, "id")
		if recordId == "" {
			renderError(w, r, apperr.BadRequest("缺少记录ID"))
			return
		}

		identity := cont.GetIdentity(r.Context())
		record, err := handler.HistoryDetail(identity.UserId, recordId)
		if err != nil {
			logger.Error("history detail", sl.Err(err), slog.String("record", recordId))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(record))
	}
}

// Stats returns usage counters for the authenticated user.
func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.name"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := cont.GetIdentity(r.Context())
		stats, err := handler.Stats(identity.UserId)
		if err != nil {
			logger.Error("usage stats", sl.Err(err))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(stats))
	}
}

// RateLimit reports the remaining generation cooldown without consuming it.
func RateLimit(_ *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := cont.GetIdentity(r.Context())
		status := handler.RateLimitStatus(r.Context(), identity.UserId)
		render.JSON(w, r, response.Ok(status))
	}
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	render.Status(r, e.Status)
	render.JSON(w, r, response.Err(e))
}
