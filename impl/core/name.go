package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"qiming/entity"
	"qiming/lib/apperr"
	"qiming/lib/clock"
	"qiming/lib/mask"
	"qiming/lib/sl"
)

const (
	defaultHistoryLimit = 100
	recentStatsLimit    = 10
	recentStatsWindow   = 7 * 24 * time.Hour
)

// GenerateNames runs one generation for an authenticated user: verifies the
// activation is still valid, consumes the per-user cooldown, calls the model
// and persists the usage record. The cooldown is taken before the model call,
// so a failed generation still counts against it.
func (c *Core) GenerateNames(ctx context.Context, identity *entity.Identity, params *entity.GenerateParams) (*entity.GenerateResult, error) {
	log := c.log.With(sl.User(mask.Code(identity.UserId)))

	record, err := c.db.GetCode(identity.Code)
	if err != nil {
		log.Error("code lookup failed", sl.Err(err))
		return nil, apperr.Database()
	}
	if record == nil || record.Status != entity.CodeUsed {
		return nil, apperr.InvalidToken("用户未激活或授权状态异常")
	}

	limit := c.limiter.CheckLimit(ctx, identity.UserId)
	if !limit.Allowed {
		log.Info("generation throttled", slog.Int("wait", limit.WaitSeconds))
		return nil, apperr.RateLimitExceeded(limit.WaitSeconds)
	}

	started := time.Now()
	names, err := c.gen.Generate(ctx, params)
	if err != nil {
		log.Error("generation failed", sl.Err(err))
		return nil, apperr.From(err)
	}
	elapsed := time.Since(started).Milliseconds()

	usage := &entity.UsageRecord{
		Id:             uuid.NewString(),
		Code:           identity.Code,
		UserId:         identity.UserId,
		DeviceId:       identity.DeviceId,
		BabyInfo:       *params,
		Names:          names,
		GenerationTime: elapsed,
		CreatedAt:      time.Now().UTC(),
	}
	if err = c.db.SaveUsageRecord(usage); err != nil {
		// the user already has the names, losing the history row is tolerable
		log.Error("usage record save failed", sl.Err(err))
	}

	log.Info("names generated",
		slog.Int("count", len(names)),
		slog.Int64("elapsed_ms", elapsed),
	)
	return &entity.GenerateResult{
		Names:          names,
		GenerationTime: elapsed,
	}, nil
}

// History returns a page of the user's past generations, newest first.
func (c *Core) History(userId string, limit, offset int64) (*entity.HistoryPage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := c.db.GetUsageRecords(userId, limit, offset)
	if err != nil {
		c.log.Error("history query failed", sl.Err(err), sl.User(mask.Code(userId)))
		return nil, apperr.Database()
	}

	page := &entity.HistoryPage{
		Records: make([]entity.HistoryRecord, 0, len(records)),
		Total:   total,
		HasMore: offset+int64(len(records)) < total,
	}
	for _, record := range records {
		page.Records = append(page.Records, historyView(record))
	}
	return page, nil
}

// HistoryDetail returns one generation record, owner-checked.
func (c *Core) HistoryDetail(userId, recordId string) (*entity.HistoryRecord, error) {
	record, err := c.db.GetUsageRecord(recordId)
	if err != nil {
		c.log.Error("record query failed", sl.Err(err))
		return nil, apperr.Database()
	}
	if record == nil {
		return nil, apperr.NotFound("记录不存在")
	}
	if record.UserId != userId {
		return nil, apperr.Forbidden("无权访问此记录")
	}
	view := historyView(record)
	return &view, nil
}

// Stats summarises the user's usage: lifetime total plus how many of the
// latest generations fall inside the recent window.
func (c *Core) Stats(userId string) (*entity.UsageStats, error) {
	total, err := c.db.CountUsageRecords(userId)
	if err != nil {
		c.log.Error("usage count failed", sl.Err(err), sl.User(mask.Code(userId)))
		return nil, apperr.Database()
	}

	recent, err := c.db.GetRecentUsageRecords(userId, recentStatsLimit)
	if err != nil {
		c.log.Error("recent usage query failed", sl.Err(err), sl.User(mask.Code(userId)))
		return nil, apperr.Database()
	}

	cutoff := time.Now().UTC().Add(-recentStatsWindow)
	count := 0
	for _, record := range recent {
		if record.CreatedAt.After(cutoff) {
			count++
		}
	}
	return &entity.UsageStats{
		TotalUsage:  total,
		RecentUsage: count,
	}, nil
}

// RateLimitStatus reports the remaining cooldown without consuming it.
func (c *Core) RateLimitStatus(ctx context.Context, userId string) *entity.RateLimitStatus {
	wait := c.limiter.WaitSeconds(ctx, userId)
	return &entity.RateLimitStatus{
		WaitSeconds: wait,
		CanGenerate: wait == 0,
	}
}

func historyView(record *entity.UsageRecord) entity.HistoryRecord {
	return entity.HistoryRecord{
		Id:           record.Id,
		UserId:       record.UserId,
		Date:         clock.Date(record.CreatedAt),
		Surname:      record.BabyInfo.Surname,
		Gender:       record.BabyInfo.Gender,
		BirthDate:    record.BabyInfo.BirthDate,
		BirthTime:    record.BabyInfo.BirthTime,
		Requirements: record.BabyInfo.Requirements,
		Names:        record.Names,
		CreatedAt:    record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
