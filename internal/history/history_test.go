package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"seedsearch/internal/models"
	"seedsearch/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SearchHistory{}))
	return NewService(store.NewWithDB(db))
}

func TestRecordNormalizesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, "u1", "  水稻  ", models.SearchTypeKeyword, 3)
	svc.Record(ctx, "", "玉米", models.SearchTypeKeyword, 1)
	svc.Record(ctx, "u1", "   ", models.SearchTypeKeyword, 0) // 空白查询直接丢弃
	svc.Record(ctx, "u1", "大豆", "bogus", 2)                   // 非法类型回退为keyword

	rows, err := svc.UserHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, models.SearchTypeKeyword, r.SearchType)
	}

	anon, err := svc.UserHistory(ctx, "anonymous", 10)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "玉米", anon[0].Query)
}

func TestHotQueriesRanked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Record(ctx, "u1", "水稻", models.SearchTypeKeyword, 1)
	}
	svc.Record(ctx, "u2", "玉米", models.SearchTypeKeyword, 1)
	svc.Record(ctx, "u3", "玉米", models.SearchTypeKeyword, 1)
	svc.Record(ctx, "u1", "小麦", models.SearchTypeKeyword, 1)

	hot, err := svc.HotQueries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hot, 3)
	assert.Equal(t, "水稻", hot[0].Query)
	assert.Equal(t, 1, hot[0].Rank)
	assert.Equal(t, "玉米", hot[1].Query)
	assert.Equal(t, 2, hot[1].Rank)
	assert.Equal(t, 3, hot[2].Rank)
}

func TestHotQueriesLimitClamp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, "u1", "水稻", models.SearchTypeKeyword, 1)

	hot, err := svc.HotQueries(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, hot, 1)

	hot, err = svc.HotQueries(ctx, 100000)
	require.NoError(t, err)
	assert.Len(t, hot, 1)
}

func TestRecentKeywordsDistinct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, "u1", "水稻", models.SearchTypeKeyword, 1)
	svc.Record(ctx, "u1", "玉米", models.SearchTypeKeyword, 1)
	svc.Record(ctx, "u1", "水稻", models.SearchTypeKeyword, 1)

	keywords, err := svc.RecentKeywords(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Len(t, keywords, 2)
	assert.Contains(t, keywords, "水稻")
	assert.Contains(t, keywords, "玉米")
}

func TestClearAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, "u1", "水稻", models.SearchTypeKeyword, 1)
	rows, err := svc.UserHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 非本人删除报错
	assert.Error(t, svc.Delete(ctx, rows[0].ID, "u2"))
	require.NoError(t, svc.Delete(ctx, rows[0].ID, "u1"))

	svc.Record(ctx, "u1", "玉米", models.SearchTypeKeyword, 1)
	require.NoError(t, svc.Clear(ctx, "u1"))
	rows, err = svc.UserHistory(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNewDeviceID(t *testing.T) {
	a := NewDeviceID()
	b := NewDeviceID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
