package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiming/entity"
	"qiming/internal/ratelimit"
	"qiming/lib/apperr"
)

// fakeDb is an in-memory Database for core tests. Setting fail makes every
// call report a storage error.
type fakeDb struct {
	codes     map[string]*entity.AuthorizationCode
	usage     map[string]*entity.UsageRecord
	favorites map[string]*entity.Favorite
	fail      bool
}

func newFakeDb() *fakeDb {
	return &fakeDb{
		codes:     make(map[string]*entity.AuthorizationCode),
		usage:     make(map[string]*entity.UsageRecord),
		favorites: make(map[string]*entity.Favorite),
	}
}

func (f *fakeDb) err() error {
	if f.fail {
		return fmt.Errorf("storage down")
	}
	return nil
}

func (f *fakeDb) GetCode(code string) (*entity.AuthorizationCode, error) {
	if f.fail {
		return nil, f.err()
	}
	record, ok := f.codes[code]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (f *fakeDb) ActivateCode(code, deviceId, activatedIp string) (*entity.AuthorizationCode, error) {
	if f.fail {
		return nil, f.err()
	}
	record, ok := f.codes[code]
	if !ok || record.Status != entity.CodeUnused {
		return nil, nil
	}
	now := time.Now().UTC()
	record.Status = entity.CodeUsed
	record.DeviceId = deviceId
	record.ActivatedIp = activatedIp
	record.ActivatedAt = &now
	clone := *record
	return &clone, nil
}

func (f *fakeDb) UpdateCodeStatus(code string, status entity.CodeStatus) error {
	if f.fail {
		return f.err()
	}
	if record, ok := f.codes[code]; ok {
		record.Status = status
	}
	return nil
}

func (f *fakeDb) SaveUsageRecord(record *entity.UsageRecord) error {
	if f.fail {
		return f.err()
	}
	f.usage[record.Id] = record
	return nil
}

func (f *fakeDb) GetUsageRecords(userId string, limit, offset int64) ([]*entity.UsageRecord, int64, error) {
	if f.fail {
		return nil, 0, f.err()
	}
	all := f.userRecords(userId)
	total := int64(len(all))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeDb) GetUsageRecord(id string) (*entity.UsageRecord, error) {
	if f.fail {
		return nil, f.err()
	}
	return f.usage[id], nil
}

func (f *fakeDb) CountUsageRecords(userId string) (int64, error) {
	if f.fail {
		return 0, f.err()
	}
	return int64(len(f.userRecords(userId))), nil
}

func (f *fakeDb) GetRecentUsageRecords(userId string, limit int64) ([]*entity.UsageRecord, error) {
	if f.fail {
		return nil, f.err()
	}
	all := f.userRecords(userId)
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeDb) userRecords(userId string) []*entity.UsageRecord {
	var out []*entity.UsageRecord
	for _, record := range f.usage {
		if record.UserId == userId {
			out = append(out, record)
		}
	}
	return out
}

func (f *fakeDb) SaveFavorite(favorite *entity.Favorite) error {
	if f.fail {
		return f.err()
	}
	f.favorites[favorite.Id] = favorite
	return nil
}

func (f *fakeDb) GetFavorite(id string) (*entity.Favorite, error) {
	if f.fail {
		return nil, f.err()
	}
	return f.favorites[id], nil
}

func (f *fakeDb) GetFavoriteByNameId(userId, nameId string) (*entity.Favorite, error) {
	if f.fail {
		return nil, f.err()
	}
	for _, favorite := range f.favorites {
		if favorite.UserId == userId && favorite.NameId == nameId {
			return favorite, nil
		}
	}
	return nil, nil
}

func (f *fakeDb) GetFavorites(userId string, limit int64) ([]*entity.Favorite, int64, error) {
	if f.fail {
		return nil, 0, f.err()
	}
	var out []*entity.Favorite
	for _, favorite := range f.favorites {
		if favorite.UserId == userId {
			out = append(out, favorite)
		}
	}
	total := int64(len(out))
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeDb) DeleteFavorite(id string) error {
	if f.fail {
		return f.err()
	}
	delete(f.favorites, id)
	return nil
}

func (f *fakeDb) CountFavorites(userId string) (int64, error) {
	if f.fail {
		return 0, f.err()
	}
	count := int64(0)
	for _, favorite := range f.favorites {
		if favorite.UserId == userId {
			count++
		}
	}
	return count, nil
}

type fakeGenerator struct {
	names []entity.NameResult
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, _ *entity.GenerateParams) ([]entity.NameResult, error) {
	f.calls++
	return f.names, f.err
}

type fakeLimiter struct {
	result ratelimit.Result
	wait   int
}

func (f *fakeLimiter) CheckLimit(context.Context, string) ratelimit.Result { return f.result }
func (f *fakeLimiter) WaitSeconds(context.Context, string) int             { return f.wait }

type fakeTokens struct{}

func (fakeTokens) Issue(userId, deviceId, code string) (string, error) {
	return "token:" + userId + ":" + deviceId, nil
}

func (fakeTokens) Verify(token string) (*entity.Identity, error) {
	return nil, apperr.InvalidToken("")
}

const (
	testCode   = "BABY-A3F7-K2M9-X5Q8"
	testDevice = "device-1234567890"
)

func newTestCore(db *fakeDb, gen *fakeGenerator, limiter *fakeLimiter) *Core {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if gen == nil {
		gen = &fakeGenerator{}
	}
	if limiter == nil {
		limiter = &fakeLimiter{result: ratelimit.Result{Allowed: true}}
	}
	return New(db, gen, limiter, fakeTokens{}, log)
}

func seedCode(db *fakeDb, status entity.CodeStatus) {
	record := &entity.AuthorizationCode{
		Code:      testCode,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if status == entity.CodeUsed {
		now := time.Now().UTC()
		record.DeviceId = testDevice
		record.ActivatedAt = &now
	}
	db.codes[testCode] = record
}

func seedNames(count int) []entity.NameResult {
	names := make([]entity.NameResult, 0, count)
	for i := 0; i < count; i++ {
		names = append(names, entity.NameResult{
			Id:       uuid.NewString(),
			Name:     fmt.Sprintf("名%d", i),
			FullName: fmt.Sprintf("李名%d", i),
			Pinyin:   "pinyin",
			Score:    90,
		})
	}
	return names
}

func TestValidateCodeActivates(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUnused)
	c := newTestCore(db, nil, nil)

	result, err := c.ValidateCode(testCode, testDevice, "203.0.113.10")
	require.NoError(t, err)
	assert.False(t, result.Recovered)
	assert.NotEmpty(t, result.Token)

	stored := db.codes[testCode]
	assert.Equal(t, entity.CodeUsed, stored.Status)
	assert.Equal(t, testDevice, stored.DeviceId)
	require.NotNil(t, stored.ActivatedAt)
}

func TestValidateCodeSecondActivationFails(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUnused)
	c := newTestCore(db, nil, nil)

	_, err := c.ValidateCode(testCode, testDevice, "")
	require.NoError(t, err)

	_, err = c.ValidateCode(testCode, "other-device-999", "")
	require.Error(t, err)
	assert.Equal(t, "CODE_ALREADY_USED", apperr.From(err).Code)
}

func TestValidateCodeFormat(t *testing.T) {
	c := newTestCore(newFakeDb(), nil, nil)

	for _, code := range []string{
		"",
		"BABY-A3F7-K2M9",
		"baby-a3f7-k2m9-x5q8",
		"GIFT-A3F7-K2M9-X5Q8",
		"BABY-A3F7-K2M9-X5Q!",
	} {
		_, err := c.ValidateCode(code, testDevice, "")
		require.Error(t, err, "code %q", code)
		assert.Equal(t, "CODE_FORMAT_INVALID", apperr.From(err).Code)
	}
}

func TestValidateCodeNotFound(t *testing.T) {
	c := newTestCore(newFakeDb(), nil, nil)

	_, err := c.ValidateCode(testCode, testDevice, "")
	require.Error(t, err)
	assert.Equal(t, "CODE_NOT_FOUND", apperr.From(err).Code)
}

func TestValidateCodeExpired(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUnused)
	past := time.Now().UTC().Add(-time.Hour)
	db.codes[testCode].ExpiresAt = &past
	c := newTestCore(db, nil, nil)

	_, err := c.ValidateCode(testCode, testDevice, "")
	require.Error(t, err)
	assert.Equal(t, "CODE_EXPIRED", apperr.From(err).Code)
	assert.Equal(t, entity.CodeExpired, db.codes[testCode].Status)
}

func TestValidateCodeDatabaseError(t *testing.T) {
	db := newFakeDb()
	db.fail = true
	c := newTestCore(db, nil, nil)

	_, err := c.ValidateCode(testCode, testDevice, "")
	require.Error(t, err)
	assert.Equal(t, "DATABASE_ERROR", apperr.From(err).Code)
}

func TestRecoverTokenSameDevice(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUsed)
	c := newTestCore(db, nil, nil)

	result, err := c.RecoverToken(testCode, testDevice)
	require.NoError(t, err)
	assert.True(t, result.Recovered)
	assert.NotEmpty(t, result.Token)
}

func TestRecoverTokenDeviceMismatch(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUsed)
	c := newTestCore(db, nil, nil)

	_, err := c.RecoverToken(testCode, "other-device-999")
	require.Error(t, err)
	assert.Equal(t, "DEVICE_MISMATCH", apperr.From(err).Code)
}

func TestRecoverTokenUnusedCodeHidden(t *testing.T) {
	// an unactivated code must be indistinguishable from a missing one
	db := newFakeDb()
	seedCode(db, entity.CodeUnused)
	c := newTestCore(db, nil, nil)

	_, err := c.RecoverToken(testCode, testDevice)
	require.Error(t, err)
	assert.Equal(t, "CODE_NOT_FOUND", apperr.From(err).Code)
}

func TestAuthStatus(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUsed)
	c := newTestCore(db, nil, nil)

	status, err := c.AuthStatus(testCode)
	require.NoError(t, err)
	assert.True(t, status.Activated)
	assert.Contains(t, status.Code, "****")
	assert.NotEqual(t, testCode, status.Code)

	status, err = c.AuthStatus("BABY-ZZZZ-ZZZZ-ZZZZ")
	require.NoError(t, err)
	assert.False(t, status.Activated)
}

func testIdentity() *entity.Identity {
	return &entity.Identity{UserId: testCode, DeviceId: testDevice, Code: testCode}
}

func TestGenerateNamesRecordsUsage(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUsed)
	gen := &fakeGenerator{names: seedNames(5)}
	c := newTestCore(db, gen, nil)

	result, err := c.GenerateNames(context.Background(), testIdentity(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "female",
	})
	require.NoError(t, err)
	assert.Len(t, result.Names, 5)
	assert.Equal(t, 1, gen.calls)
	require.Len(t, db.usage, 1)
	for _, record := range db.usage {
		assert.Equal(t, testCode, record.UserId)
		assert.Equal(t, "李", record.BabyInfo.Surname)
		assert.Len(t, record.Names, 5)
	}
}

func TestGenerateNamesRequiresActivation(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUnused)
	gen := &fakeGenerator{names: seedNames(5)}
	c := newTestCore(db, gen, nil)

	_, err := c.GenerateNames(context.Background(), testIdentity(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "female",
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_TOKEN", apperr.From(err).Code)
	assert.Zero(t, gen.calls)
}

func TestGenerateNamesRateLimited(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUsed)
	gen := &fakeGenerator{names: seedNames(5)}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, WaitSeconds: 17}}
	c := newTestCore(db, gen, limiter)

	_, err := c.GenerateNames(context.Background(), testIdentity(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "female",
	})
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", e.Code)
	assert.Equal(t, 17, e.WaitSeconds)
	assert.Zero(t, gen.calls)
}

func TestGenerateNamesUpstreamFailure(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUsed)
	gen := &fakeGenerator{err: apperr.AiTimeout()}
	c := newTestCore(db, gen, nil)

	_, err := c.GenerateNames(context.Background(), testIdentity(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "female",
	})
	require.Error(t, err)
	assert.Equal(t, "AI_TIMEOUT", apperr.From(err).Code)
	assert.Empty(t, db.usage)
}

func TestHistoryPagination(t *testing.T) {
	db := newFakeDb()
	seedCode(db, entity.CodeUsed)
	gen := &fakeGenerator{names: seedNames(5)}
	c := newTestCore(db, gen, nil)

	for i := 0; i < 3; i++ {
		_, err := c.GenerateNames(context.Background(), testIdentity(), &entity.GenerateParams{
			Surname: "李",
			Gender:  "male",
		})
		require.NoError(t, err)
	}

	page, err := c.History(testCode, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.True(t, page.HasMore)

	page, err = c.History(testCode, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.False(t, page.HasMore)
}

func TestHistoryDetailOwnership(t *testing.T) {
	db := newFakeDb()
	record := &entity.UsageRecord{
		Id:        uuid.NewString(),
		UserId:    testCode,
		BabyInfo:  entity.GenerateParams{Surname: "李", Gender: "male"},
		Names:     seedNames(5),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveUsageRecord(record))
	c := newTestCore(db, nil, nil)

	detail, err := c.HistoryDetail(testCode, record.Id)
	require.NoError(t, err)
	assert.Equal(t, record.Id, detail.Id)
	assert.Len(t, detail.Names, 5)

	_, err = c.HistoryDetail("BABY-ZZZZ-ZZZZ-ZZZZ", record.Id)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.From(err).Code)

	_, err = c.HistoryDetail(testCode, "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.From(err).Code)
}

func TestStats(t *testing.T) {
	db := newFakeDb()
	old := &entity.UsageRecord{
		Id:        uuid.NewString(),
		UserId:    testCode,
		CreatedAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
	fresh := &entity.UsageRecord{
		Id:        uuid.NewString(),
		UserId:    testCode,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, db.SaveUsageRecord(old))
	require.NoError(t, db.SaveUsageRecord(fresh))
	c := newTestCore(db, nil, nil)

	stats, err := c.Stats(testCode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsage)
	assert.Equal(t, 1, stats.RecentUsage)
}

func TestRateLimitStatus(t *testing.T) {
	c := newTestCore(newFakeDb(), nil, &fakeLimiter{wait: 12})

	status := c.RateLimitStatus(context.Background(), testCode)
	assert.Equal(t, 12, status.WaitSeconds)
	assert.False(t, status.CanGenerate)

	c = newTestCore(newFakeDb(), nil, &fakeLimiter{wait: 0})
	status = c.RateLimitStatus(context.Background(), testCode)
	assert.True(t, status.CanGenerate)
}

func TestAddFavoriteIdempotent(t *testing.T) {
	db := newFakeDb()
	c := newTestCore(db, nil, nil)
	name := seedNames(1)[0]

	first, err := c.AddFavorite(testCode, &name)
	require.NoError(t, err)

	second, err := c.AddFavorite(testCode, &name)
	require.NoError(t, err)
	assert.Equal(t, first.Id, second.Id)
	assert.Len(t, db.favorites, 1)
}

func TestAddFavoriteCap(t *testing.T) {
	db := newFakeDb()
	c := newTestCore(db, nil, nil)

	for _, name := range seedNames(maxFavorites) {
		_, err := c.AddFavorite(testCode, &name)
		require.NoError(t, err)
	}

	extra := entity.NameResult{Id: uuid.NewString(), Name: "满", FullName: "李满", Pinyin: "mǎn"}
	_, err := c.AddFavorite(testCode, &extra)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.From(err).Code)
}

func TestRemoveFavoriteOwnership(t *testing.T) {
	db := newFakeDb()
	c := newTestCore(db, nil, nil)
	name := seedNames(1)[0]

	favorite, err := c.AddFavorite(testCode, &name)
	require.NoError(t, err)

	err = c.RemoveFavorite("BABY-ZZZZ-ZZZZ-ZZZZ", favorite.Id)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.From(err).Code)

	require.NoError(t, c.RemoveFavorite(testCode, favorite.Id))
	assert.Empty(t, db.favorites)

	err = c.RemoveFavorite(testCode, favorite.Id)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.From(err).Code)
}

func TestCheckFavorite(t *testing.T) {
	db := newFakeDb()
	c := newTestCore(db, nil, nil)
	name := seedNames(1)[0]

	check, err := c.CheckFavorite(testCode, name.Id)
	require.NoError(t, err)
	assert.False(t, check.IsFavorite)

	favorite, err := c.AddFavorite(testCode, &name)
	require.NoError(t, err)

	check, err = c.CheckFavorite(testCode, name.Id)
	require.NoError(t, err)
	assert.True(t, check.IsFavorite)
	assert.Equal(t, favorite.Id, check.FavoriteId)
}
