package core

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"qiming/entity"
	"qiming/lib/apperr"
	"qiming/lib/mask"
	"qiming/lib/sl"
)

const maxFavorites = 100

// AddFavorite pins a generated name. Adding a name that is already pinned
// returns the existing favorite instead of a duplicate.
func (c *Core) AddFavorite(userId string, name *entity.NameResult) (*entity.Favorite, error) {
	log := c.log.With(sl.User(mask.Code(userId)))

	existing, err := c.db.GetFavoriteByNameId(userId, name.Id)
	if err != nil {
		log.Error("favorite lookup failed", sl.Err(err))
		return nil, apperr.Database()
	}
	if existing != nil {
		return existing, nil
	}

	count, err := c.db.CountFavorites(userId)
	if err != nil {
		log.Error("favorite count failed", sl.Err(err))
		return nil, apperr.Database()
	}
	if count >= maxFavorites {
		return nil, apperr.Forbidden("收藏数量已达上限（100个），请先删除部分收藏")
	}

	favorite := &entity.Favorite{
		Id:        uuid.NewString(),
		UserId:    userId,
		NameId:    name.Id,
		Name:      *name,
		CreatedAt: time.Now().UTC(),
	}
	if err = c.db.SaveFavorite(favorite); err != nil {
		log.Error("favorite save failed", sl.Err(err))
		return nil, apperr.Database()
	}

	log.Info("favorite added", slog.String("name", name.FullName))
	return favorite, nil
}

// RemoveFavorite deletes one favorite, owner-checked.
func (c *Core) RemoveFavorite(userId, favoriteId string) error {
	favorite, err := c.db.GetFavorite(favoriteId)
	if err != nil {
		c.log.Error("favorite lookup failed", sl.Err(err))
		return apperr.Database()
	}
	if favorite == nil {
		return apperr.NotFound("收藏不存在")
	}
	if favorite.UserId != userId {
		return apperr.Forbidden("无权删除此收藏")
	}

	if err = c.db.DeleteFavorite(favoriteId); err != nil {
		c.log.Error("favorite delete failed", sl.Err(err))
		return apperr.Database()
	}
	return nil
}

// Favorites lists the user's pinned names, newest first.
func (c *Core) Favorites(userId string, limit int64) (*entity.FavoritePage, error) {
	if limit <= 0 || limit > maxFavorites {
		limit = maxFavorites
	}

	favorites, total, err := c.db.GetFavorites(userId, limit)
	if err != nil {
		c.log.Error("favorites query failed", sl.Err(err), sl.User(mask.Code(userId)))
		return nil, apperr.Database()
	}

	page := &entity.FavoritePage{
		Favorites: make([]entity.Favorite, 0, len(favorites)),
		Total:     total,
	}
	for _, favorite := range favorites {
		page.Favorites = append(page.Favorites, *favorite)
	}
	return page, nil
}

// CheckFavorite tells whether a given name id is pinned by the user.
func (c *Core) CheckFavorite(userId, nameId string) (*entity.FavoriteCheck, error) {
	favorite, err := c.db.GetFavoriteByNameId(userId, nameId)
	if err != nil {
		c.log.Error("favorite lookup failed", sl.Err(err), sl.User(mask.Code(userId)))
		return nil, apperr.Database()
	}
	if favorite == nil {
		return &entity.FavoriteCheck{IsFavorite: false}, nil
	}
	return &entity.FavoriteCheck{
		IsFavorite: true,
		FavoriteId: favorite.Id,
	}, nil
}
