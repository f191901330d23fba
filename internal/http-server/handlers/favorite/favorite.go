package favorite

import (
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
	AddFavorite(userId string, name *entity.NameResult) (*entity.Favorite, error)
	RemoveFavorite(userId, favoriteId string) error
	Favorites(userId string, limit int64) (*entity.FavoritePage, error)
	CheckFavorite(userId, nameId string) (*entity.FavoriteCheck, error)
}

// Add pins a generated name for the authenticated user.
func Add(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.favorite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.FavoriteRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			renderError(w, r, apperr.BadRequest(err.Error()))
			return
		}

		identity := cont.GetIdentity(r.Context())
		favorite, err := handler.AddFavorite(identity.UserId, &req.Name)
		if err != nil {
			logger.Error("add favorite", sl.Err(err))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(favorite))
	}
}

// Remove deletes one favorite by id.
func Remove(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.favorite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		favoriteId := chi.URLParam(r, "id")
		if favoriteId == "" {
			renderError(w, r, apperr.BadRequest("缺少收藏ID"))
			return
		}

		identity := cont.GetIdentity(r.Context())
		if err := handler.RemoveFavorite(identity.UserId, favoriteId); err != nil {
			logger.Error("remove favorite", sl.Err(err), slog.String("favorite", favoriteId))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(nil))
	}
}

// List returns the user's favorites, newest first.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.favorite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		limit := int64(0)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
				limit = value
			}
		}

		identity := cont.GetIdentity(r.Context())
		page, err := handler.Favorites(identity.UserId, limit)
		if err != nil {
			logger.Error("favorites query", sl.Err(err))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(page))
	}
}

// Check tells whether a name id is already pinned.
func Check(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.favorite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		nameId := chi.URLParam(r, "nameId")
		if nameId == "" {
			renderError(w, r, apperr.BadRequest("缺少名字ID"))
			return
		}

		identity := cont.GetIdentity(r.Context())
		check, err := handler.CheckFavorite(identity.UserId, nameId)
		if err != nil {
			logger.Error("favorite check", sl.Err(err))
			renderError(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(check))
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	render.Status(r, e.Status)
	render.JSON(w, r, response.Err(e))
}
