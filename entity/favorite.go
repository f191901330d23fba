package entity

import (
	"fmt"
	"net/http"
	"time"
)

// Favorite pins one generated name for a user. NameId references the
// server-assigned NameResult id, so re-adding the same name is idempotent.
type Favorite struct {
	Id        string     `json:"id" bson:"favorite_id"`
	UserId    string     `json:"userId" bson:"user_id"`
	NameId    string     `json:"nameId" bson:"name_id"`
	Name      NameResult `json:"name" bson:"name"`
	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
}

type FavoriteRequest struct {
	Name NameResult `json:"name" validate:"required"`
}

func (f *FavoriteRequest) Bind(_ *http.Request) error {
	if f.Name.Id == "" {
		return fmt.Errorf("name.id required")
	}
	if f.Name.FullName == "" {
		return fmt.Errorf("name.full_name required")
	}
	return nil
}

type FavoritePage struct {
	Favorites []Favorite `json:"favorites"`
	Total     int64      `json:"total"`
}

type FavoriteCheck struct {
	IsFavorite bool   `json:"isFavorite"`
	FavoriteId string `json:"favoriteId,omitempty"`
}
