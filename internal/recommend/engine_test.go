package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"seedsearch/internal/models"
	"seedsearch/internal/store"
)

// likeSearcher 用数据库模糊检索充当关键字检索
type likeSearcher struct {
	st *store.Store
}

func (l likeSearcher) Search(ctx context.Context, keyword string, page, pageSize int) (*models.PagedResult, error) {
	return l.st.SearchSeedsLike(ctx, keyword, page, pageSize)
}

// fakeSemanticSearcher 固定返回预设种子或错误，模拟语义召回
type fakeSemanticSearcher struct {
	seeds []models.Seed
	err   error
}

func (f fakeSemanticSearcher) SearchByQuery(ctx context.Context, query string, topK int) ([]models.Seed, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.seeds) > topK {
		return f.seeds[:topK], nil
	}
	return f.seeds, nil
}

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Seed{}, &models.SearchHistory{}))
	st := store.NewWithDB(db)
	return NewEngine(st, likeSearcher{st: st}, nil), st
}

func mustCreate(t *testing.T, st *store.Store, seed *models.Seed) *models.Seed {
	t.Helper()
	require.NoError(t, st.CreateSeed(context.Background(), seed))
	return seed
}

func TestBuildProfile(t *testing.T) {
	now := time.Now()
	rows := []models.SearchHistory{
		{Query: "东北水稻", CreatedAt: now},
		{Query: "水稻", CreatedAt: now.Add(-time.Hour)},
		{Query: "小麦", CreatedAt: now.Add(-2 * time.Hour)},
		{Query: "水稻", CreatedAt: now.Add(-3 * time.Hour)},
	}

	profile := BuildProfile("u1", rows)
	assert.Equal(t, "u1", profile.UserID)
	assert.Equal(t, 3, profile.CropTypeFrequency[models.CropTypeRice])
	assert.Equal(t, 1, profile.CropTypeFrequency[models.CropTypeWheat])
	assert.Equal(t, models.CropTypeRice, profile.PreferredCropType)
	assert.Equal(t, "东北", profile.PreferredRegion)
	assert.Equal(t, []string{"东北水稻", "水稻", "小麦"}, profile.SearchKeywords)
	assert.Equal(t, 4, profile.TotalSearchCount)
	assert.Equal(t, now, profile.LastSearchTime)
}

func TestTrendingRecentYearsOnly(t *testing.T) {
	engine, st := newTestEngine(t)
	year := time.Now().Year()

	fresh := mustCreate(t, st, &models.Seed{VarietyName: "新品种", ApprovalNumber: "N1",
		ApprovalYear: year, CropType: models.CropTypeRice})
	lastYear := mustCreate(t, st, &models.Seed{VarietyName: "去年品种", ApprovalNumber: "N2",
		ApprovalYear: year - 1, CropType: models.CropTypeRice})
	mustCreate(t, st, &models.Seed{VarietyName: "老品种", ApprovalNumber: "N3",
		ApprovalYear: year - 5, CropType: models.CropTypeRice})

	recs, err := engine.Trending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, fresh.ID, recs[0].Seed.ID)
	assert.Equal(t, lastYear.ID, recs[1].Seed.ID)
	for _, r := range recs {
		assert.Equal(t, scoreTrending, r.Score)
		assert.Equal(t, "最新审定的优质品种", r.Reason)
		assert.Equal(t, models.RecommendTrending, r.Source)
	}
}

func TestSimilarSameCropAndRegion(t *testing.T) {
	engine, st := newTestEngine(t)
	year := time.Now().Year()

	base := mustCreate(t, st, &models.Seed{VarietyName: "稻花香", ApprovalNumber: "S1",
		ApprovalYear: year, CropType: models.CropTypeRice, ApprovalRegion: "东北"})
	peer := mustCreate(t, st, &models.Seed{VarietyName: "五优稻", ApprovalNumber: "S2",
		ApprovalYear: year, CropType: models.CropTypeRice, ApprovalRegion: "东北"})
	mustCreate(t, st, &models.Seed{VarietyName: "郑单", ApprovalNumber: "S3",
		ApprovalYear: year, CropType: models.CropTypeCorn, ApprovalRegion: "华中"})

	recs, err := engine.Similar(context.Background(), base.ID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, peer.ID, recs[0].Seed.ID)
	assert.Equal(t, scoreSimilar, recs[0].Score)
	assert.Equal(t, "与\"稻花香\"相似的品种", recs[0].Reason)
	assert.Equal(t, models.RecommendSimilar, recs[0].Source)
}

func TestSimilarNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Similar(context.Background(), 9999, 5)
	assert.Error(t, err)
}

func TestPersonalizedColdStartFallsBackToTrending(t *testing.T) {
	engine, st := newTestEngine(t)
	year := time.Now().Year()
	mustCreate(t, st, &models.Seed{VarietyName: "新品种", ApprovalNumber: "C1",
		ApprovalYear: year, CropType: models.CropTypeRice})

	recs, err := engine.Personalized(context.Background(), "nobody", 6)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.Equal(t, models.RecommendTrending, r.Source)
	}
}

func TestPersonalizedMergeKeepsHighestScore(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	year := time.Now().Year()

	rice := mustCreate(t, st, &models.Seed{VarietyName: "稻花香水稻", ApprovalNumber: "P1",
		ApprovalYear: year, CropType: models.CropTypeRice, ApprovalRegion: "东北"})
	mustCreate(t, st, &models.Seed{VarietyName: "郑单玉米", ApprovalNumber: "P2",
		ApprovalYear: year - 4, CropType: models.CropTypeCorn, ApprovalRegion: "华中"})

	require.NoError(t, st.SaveHistory(ctx, &models.SearchHistory{
		UserID: "u1", Query: "水稻", SearchType: models.SearchTypeKeyword,
	}))

	recs, err := engine.Personalized(ctx, "u1", 6)
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	// 同一品种同时命中内容与画像推荐时只出现一次，保留内容推荐的更高分
	seenRice := 0
	for _, r := range recs {
		if r.Seed.ID == rice.ID {
			seenRice++
			assert.Equal(t, scoreContentBased, r.Score)
			assert.Equal(t, models.RecommendContentBased, r.Source)
		}
	}
	assert.Equal(t, 1, seenRice)

	// 结果按分数倒序
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Score, recs[i].Score)
	}
}

func TestPersonalizedPrefersSemanticRecall(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	year := time.Now().Year()

	// 名称与检索词毫无字面重叠，只有语义召回才能给出这条推荐
	corn := mustCreate(t, st, &models.Seed{VarietyName: "郑单玉米", ApprovalNumber: "V1",
		ApprovalYear: year - 3, CropType: models.CropTypeCorn, ApprovalRegion: "华中"})
	engine.semantic = fakeSemanticSearcher{seeds: []models.Seed{*corn}}

	require.NoError(t, st.SaveHistory(ctx, &models.SearchHistory{
		UserID: "u2", Query: "抗旱高产", SearchType: models.SearchTypeSemantic,
	}))

	recs, err := engine.Personalized(ctx, "u2", 6)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, corn.ID, recs[0].Seed.ID)
	assert.Equal(t, models.RecommendContentBased, recs[0].Source)
}

func TestPersonalizedSemanticFailureFallsBackToKeyword(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	year := time.Now().Year()

	rice := mustCreate(t, st, &models.Seed{VarietyName: "稻花香水稻", ApprovalNumber: "V2",
		ApprovalYear: year - 3, CropType: models.CropTypeRice, ApprovalRegion: "东北"})
	engine.semantic = fakeSemanticSearcher{err: context.DeadlineExceeded}

	require.NoError(t, st.SaveHistory(ctx, &models.SearchHistory{
		UserID: "u3", Query: "水稻", SearchType: models.SearchTypeKeyword,
	}))

	recs, err := engine.Personalized(ctx, "u3", 6)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, rice.ID, recs[0].Seed.ID)
	assert.Equal(t, models.RecommendContentBased, recs[0].Source)
}

func TestPersonalizedTrendingShare(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	year := time.Now().Year()

	for i := 0; i < 3; i++ {
		mustCreate(t, st, &models.Seed{
			VarietyName:    "热门品种" + string(rune('A'+i)),
			ApprovalNumber: "T" + string(rune('A'+i)),
			ApprovalYear:   year,
			CropType:       models.CropTypeRice,
		})
	}
	require.NoError(t, st.SaveHistory(ctx, &models.SearchHistory{
		UserID: "u4", Query: "不存在的检索词", SearchType: models.SearchTypeKeyword,
	}))

	// 内容与画像两路都空时，热门兜底只占limit/4的份额
	recs, err := engine.Personalized(ctx, "u4", 8)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, models.RecommendTrending, r.Source)
	}
}

func TestPersonalizedLimitClamp(t *testing.T) {
	engine, st := newTestEngine(t)
	year := time.Now().Year()
	for i := 0; i < 30; i++ {
		mustCreate(t, st, &models.Seed{
			VarietyName:    "品种" + string(rune('A'+i)),
			ApprovalNumber: "L" + string(rune('A'+i)),
			ApprovalYear:   year,
			CropType:       models.CropTypeRice,
		})
	}

	recs, err := engine.Personalized(context.Background(), "", 10000)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(recs), maxPersonalLimit)
}
