package core

import (
	"context"
	"log/slog"

	"qiming/entity"
	"qiming/internal/ratelimit"
	"qiming/lib/sl"
)

// Database is the persistence contract the core depends on. Both the Mongo
// and the MySQL stores satisfy it. Lookups return (nil, nil) for absent
// records; ActivateCode returns nil when the conditional UNUSED -> USED
// update matched nothing.
type Database interface {
	GetCode(code string) (*entity.AuthorizationCode, error)
	ActivateCode(code, deviceId, activatedIp string) (*entity.AuthorizationCode, error)
	UpdateCodeStatus(code string, status entity.CodeStatus) error
	SaveUsageRecord(record *entity.UsageRecord) error
	GetUsageRecords(userId string, limit, offset int64) ([]*entity.UsageRecord, int64, error)
	GetUsageRecord(id string) (*entity.UsageRecord, error)
	CountUsageRecords(userId string) (int64, error)
	GetRecentUsageRecords(userId string, limit int64) ([]*entity.UsageRecord, error)
	SaveFavorite(favorite *entity.Favorite) error
	GetFavorite(id string) (*entity.Favorite, error)
	GetFavoriteByNameId(userId, nameId string) (*entity.Favorite, error)
	GetFavorites(userId string, limit int64) ([]*entity.Favorite, int64, error)
	DeleteFavorite(id string) error
	CountFavorites(userId string) (int64, error)
}

type Generator interface {
	Generate(ctx context.Context, params *entity.GenerateParams) ([]entity.NameResult, error)
}

type Limiter interface {
	CheckLimit(ctx context.Context, userId string) ratelimit.Result
	WaitSeconds(ctx context.Context, userId string) int
}

type Tokens interface {
	Issue(userId, deviceId, code string) (string, error)
	Verify(token string) (*entity.Identity, error)
}

type Core struct {
	db      Database
	gen     Generator
	limiter Limiter
	tokens  Tokens
	log     *slog.Logger
}

func New(db Database, gen Generator, limiter Limiter, tokens Tokens, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	return &Core{
		db:      db,
		gen:     gen,
		limiter: limiter,
		tokens:  tokens,
		log:     log.With(sl.Module("core")),
	}
}
