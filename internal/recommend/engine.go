package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/store"
)

// 各来源的固定评分，相似推荐最高，热门兜底最低
const (
	scoreSimilar      = 0.90
	scoreContentBased = 0.85
	scoreUserProfile  = 0.80
	scoreTrending     = 0.75
)

const (
	defaultPersonalLimit = 6
	maxPersonalLimit     = 20
	defaultTrendingLimit = 10
	maxTrendingLimit     = 50
	defaultSimilarLimit  = 5
	maxSimilarLimit      = 20

	// 内容推荐取最近几个检索词
	recentKeywordCount = 3
)

// KeywordSearcher 关键字检索能力，语义检索不可用时内容推荐走这条链路
type KeywordSearcher interface {
	Search(ctx context.Context, keyword string, page, pageSize int) (*models.PagedResult, error)
}

// SemanticSearcher 语义检索能力，内容推荐优先按语义召回
type SemanticSearcher interface {
	SearchByQuery(ctx context.Context, query string, topK int) ([]models.Seed, error)
}

// Engine 推荐引擎
type Engine struct {
	store    *store.Store
	searcher KeywordSearcher
	semantic SemanticSearcher
	log      *logger.Logger
}

// NewEngine 创建推荐引擎，semantic为nil时内容推荐只走关键字检索
func NewEngine(st *store.Store, searcher KeywordSearcher, semantic SemanticSearcher) *Engine {
	return &Engine{
		store:    st,
		searcher: searcher,
		semantic: semantic,
		log:      logger.NewLogger("recommend-engine"),
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Trending 最新审定的品种，近两个审定年度内按年份倒序
func (e *Engine) Trending(ctx context.Context, limit int) ([]models.Recommendation, error) {
	limit = clampLimit(limit, defaultTrendingLimit, maxTrendingLimit)

	seeds, err := e.store.ListTrendingSeeds(ctx, time.Now().Year()-1, limit)
	if err != nil {
		return nil, err
	}
	recs := make([]models.Recommendation, 0, len(seeds))
	for _, seed := range seeds {
		recs = append(recs, models.Recommendation{
			Seed:   seed,
			Score:  scoreTrending,
			Reason: "最新审定的优质品种",
			Source: models.RecommendTrending,
		})
	}
	return recs, nil
}

// Similar 与指定品种同作物同审定地区的品种
func (e *Engine) Similar(ctx context.Context, seedID int64, limit int) ([]models.Recommendation, error) {
	limit = clampLimit(limit, defaultSimilarLimit, maxSimilarLimit)

	seed, err := e.store.GetSeed(ctx, seedID)
	if err != nil {
		return nil, err
	}
	seeds, err := e.store.ListSimilarSeeds(ctx, seed.CropType, seed.ApprovalRegion, seed.ID, limit)
	if err != nil {
		return nil, err
	}
	recs := make([]models.Recommendation, 0, len(seeds))
	for _, s := range seeds {
		recs = append(recs, models.Recommendation{
			Seed:   s,
			Score:  scoreSimilar,
			Reason: fmt.Sprintf("与\"%s\"相似的品种", seed.VarietyName),
			Source: models.RecommendSimilar,
		})
	}
	return recs, nil
}

// recallByKeyword 单个检索词的召回，优先语义检索，失败或无结果时降级关键字检索
func (e *Engine) recallByKeyword(ctx context.Context, keyword string, limit int) []models.Seed {
	if e.semantic != nil {
		seeds, err := e.semantic.SearchByQuery(ctx, keyword, limit)
		if err != nil {
			e.log.WithError(err).WithField("keyword", keyword).
				Warn("语义召回失败，降级关键字检索")
		} else if len(seeds) > 0 {
			return seeds
		}
	}
	res, err := e.searcher.Search(ctx, keyword, 0, limit)
	if err != nil {
		e.log.WithError(err).WithField("keyword", keyword).Warn("内容推荐检索失败，跳过该检索词")
		return nil
	}
	return res.Items
}

// contentBased 基于最近检索词的内容推荐
func (e *Engine) contentBased(ctx context.Context, keywords []string, perKeyword int) []models.Recommendation {
	if perKeyword < 1 {
		perKeyword = 1
	}
	var recs []models.Recommendation
	for _, kw := range keywords {
		for _, seed := range e.recallByKeyword(ctx, kw, perKeyword) {
			recs = append(recs, models.Recommendation{
				Seed:   seed,
				Score:  scoreContentBased,
				Reason: fmt.Sprintf("基于您搜索过的\"%s\"推荐", kw),
				Source: models.RecommendContentBased,
			})
		}
	}
	return recs
}

// profileBased 基于用户画像偏好的推荐
func (e *Engine) profileBased(ctx context.Context, profile *models.UserProfile, limit int) []models.Recommendation {
	if profile.PreferredCropType == "" && profile.PreferredRegion == "" {
		return nil
	}
	if limit < 1 {
		limit = 1
	}
	res, err := e.store.ListSeeds(ctx, store.ListOptions{
		CropType: profile.PreferredCropType,
		Region:   profile.PreferredRegion,
		PageSize: limit,
	})
	if err != nil {
		e.log.WithError(err).Warn("画像推荐查询失败")
		return nil
	}
	recs := make([]models.Recommendation, 0, len(res.Items))
	for _, seed := range res.Items {
		recs = append(recs, models.Recommendation{
			Seed:   seed,
			Score:  scoreUserProfile,
			Reason: "符合您的搜索偏好",
			Source: models.RecommendUserProfile,
		})
	}
	return recs
}

// Personalized 个性化推荐
// 三路并发：内容、画像、热门；按品种去重保留最高分；无历史或全部失败时回退热门
func (e *Engine) Personalized(ctx context.Context, userID string, limit int) ([]models.Recommendation, error) {
	limit = clampLimit(limit, defaultPersonalLimit, maxPersonalLimit)

	if userID == "" {
		return e.Trending(ctx, limit)
	}

	rows, err := e.store.UserHistoryRows(ctx, userID, profileHistoryLimit)
	if err != nil || len(rows) == 0 {
		if err != nil {
			e.log.WithError(err).Warn("读取检索历史失败，回退热门推荐")
		}
		return e.Trending(ctx, limit)
	}

	profile := BuildProfile(userID, rows)
	keywords := profile.SearchKeywords
	if len(keywords) > recentKeywordCount {
		keywords = keywords[:recentKeywordCount]
	}

	var (
		mu        sync.Mutex
		collected []models.Recommendation
	)
	add := func(recs []models.Recommendation) {
		mu.Lock()
		collected = append(collected, recs...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		add(e.contentBased(gctx, keywords, limit/2))
		return nil
	})
	g.Go(func() error {
		add(e.profileBased(gctx, profile, limit/2))
		return nil
	})
	g.Go(func() error {
		// limit/4 向下取整可能为0，而0会触发默认条数，至少保留1条
		share := limit / 4
		if share < 1 {
			share = 1
		}
		trending, err := e.Trending(gctx, share)
		if err != nil {
			e.log.WithError(err).Warn("热门推荐查询失败")
			return nil
		}
		add(trending)
		return nil
	})
	// 子任务各自吞错，这里不会返回错误
	_ = g.Wait()

	merged := mergeByScore(collected)
	if len(merged) == 0 {
		return e.Trending(ctx, limit)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// mergeByScore 按品种去重保留最高分，再按分数倒序、主键倒序排列
func mergeByScore(recs []models.Recommendation) []models.Recommendation {
	best := make(map[int64]models.Recommendation, len(recs))
	for _, r := range recs {
		if cur, ok := best[r.Seed.ID]; !ok || r.Score > cur.Score {
			best[r.Seed.ID] = r
		}
	}
	merged := make([]models.Recommendation, 0, len(best))
	for _, r := range best {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Seed.ID > merged[j].Seed.ID
	})
	return merged
}
