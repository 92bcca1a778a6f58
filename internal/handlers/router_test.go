package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"seedsearch/internal/config"
	"seedsearch/internal/history"
	"seedsearch/internal/models"
	"seedsearch/internal/recommend"
	"seedsearch/internal/search"
	"seedsearch/internal/store"
	syncpkg "seedsearch/internal/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router       *gin.Engine
	store        *store.Store
	orchestrator *syncpkg.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Seed{}, &models.SeedApproval{}, &models.SearchHistory{}))
	st := store.NewWithDB(db)

	idx, err := search.NewIndex(&config.LexicalConfig{Path: ""})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	searcher := search.NewService(idx, st)
	hist := history.NewService(st)
	engine := recommend.NewEngine(st, searcher, nil)
	indexer := syncpkg.NewIndexer(idx, nil)
	orchestrator := syncpkg.NewOrchestrator(st, idx, nil, config.SyncConfig{})

	router := NewRouter(Deps{
		Store:        st,
		Searcher:     searcher,
		Semantic:     nil,
		History:      hist,
		Recommender:  engine,
		Indexer:      indexer,
		Orchestrator: orchestrator,
	})
	return &testEnv{router: router, store: st, orchestrator: orchestrator}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (e *testEnv) seedAndRebuild(t *testing.T, seeds ...*models.Seed) {
	t.Helper()
	ctx := context.Background()
	for _, s := range seeds {
		require.NoError(t, e.store.CreateSeed(ctx, s))
	}
	require.NoError(t, e.orchestrator.RebuildAll(ctx))
}

func testSeeds() []*models.Seed {
	return []*models.Seed{
		{VarietyName: "华优1号", ApprovalNumber: "国审稻20210001", ApprovalYear: 2021,
			ApprovalRegion: "华东", CropType: models.CropTypeRice, Company: "A公司"},
		{VarietyName: "济麦22", ApprovalNumber: "国审麦20230003", ApprovalYear: 2023,
			ApprovalRegion: "华北", CropType: models.CropTypeWheat, Company: "山东种业"},
	}
}

func TestSearchBeforeIndexReady(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/search/seeds?keyword=水稻", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestKeywordSearch(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t, testSeeds()...)

	w, resp := env.do(t, http.MethodGet, "/api/search/seeds?keyword=华优&userId=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Message)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result models.PagedResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.NotEmpty(t, result.Items)
	assert.Equal(t, "华优1号", result.Items[0].VarietyName)
}

func TestKeywordSearchPinyin(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t, testSeeds()...)

	for _, keyword := range []string{"huayou", "hy"} {
		w, resp := env.do(t, http.MethodGet, "/api/search/seeds?keyword="+keyword, nil)
		require.Equal(t, http.StatusOK, w.Code, keyword)

		raw, _ := json.Marshal(resp.Data)
		var result models.PagedResult
		require.NoError(t, json.Unmarshal(raw, &result))
		require.NotEmpty(t, result.Items, keyword)
		assert.Equal(t, "华优1号", result.Items[0].VarietyName, keyword)
	}
}

func TestKeywordSearchMissingParam(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t)

	w, _ := env.do(t, http.MethodGet, "/api/search/seeds", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeedCRUDRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t)

	body := map[string]interface{}{
		"varietyName":    "郑单958",
		"approvalNumber": "国审玉20220002",
		"approvalYear":   2022,
		"approvalRegion": "华中",
		"cropType":       models.CropTypeCorn,
		"company":        "河南秋乐种业",
	}
	w, resp := env.do(t, http.MethodPost, "/api/seeds", body)
	require.Equal(t, http.StatusCreated, w.Code)

	raw, _ := json.Marshal(resp.Data)
	var created models.Seed
	require.NoError(t, json.Unmarshal(raw, &created))
	require.NotZero(t, created.ID)

	w, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/seeds/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 写入后无需全量同步即可被检索到
	w, resp = env.do(t, http.MethodGet, "/api/search/seeds?keyword=郑单", nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw, _ = json.Marshal(resp.Data)
	var result models.PagedResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.NotEmpty(t, result.Items)

	w, _ = env.do(t, http.MethodPut, fmt.Sprintf("/api/seeds/%d", created.ID),
		map[string]interface{}{"company": "改名种业"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/seeds/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/seeds/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeedListAndFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t, testSeeds()...)

	w, resp := env.do(t, http.MethodGet, "/api/seeds?page=0&pageSize=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw, _ := json.Marshal(resp.Data)
	var result models.PagedResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, int64(2), result.Total)
	assert.Len(t, result.Items, 1)

	w, resp = env.do(t, http.MethodGet, "/api/seeds/filter?cropType=小麦", nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw, _ = json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "济麦22", result.Items[0].VarietyName)
}

func TestByApprovalNumber(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t, testSeeds()...)

	w, resp := env.do(t, http.MethodGet,
		"/api/seeds/search/by-approval-number?approvalNumber=国审稻20210001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	raw, _ := json.Marshal(resp.Data)
	var seed models.Seed
	require.NoError(t, json.Unmarshal(raw, &seed))
	assert.Equal(t, "华优1号", seed.VarietyName)

	w, resp = env.do(t, http.MethodGet,
		"/api/seeds/search/by-approval-number?approvalNumber=不存在的编号", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdvancedSearchRoute(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t, testSeeds()...)

	w, resp := env.do(t, http.MethodPost, "/api/seeds/search/advanced", models.AdvancedSearchRequest{
		CropTypes: []string{models.CropTypeRice},
		YearFrom:  2020,
		YearTo:    2022,
	})
	require.Equal(t, http.StatusOK, w.Code)

	raw, _ := json.Marshal(resp.Data)
	var result models.PagedResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "华优1号", result.Items[0].VarietyName)
}

func TestHistoryRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t)

	// 匿名上报会分配设备标识
	w, resp := env.do(t, http.MethodPost, "/api/search-history/record",
		map[string]interface{}{"query": "抗倒伏", "searchType": "keyword", "resultCount": 2})
	require.Equal(t, http.StatusOK, w.Code)
	raw, _ := json.Marshal(resp.Data)
	var assigned map[string]string
	require.NoError(t, json.Unmarshal(raw, &assigned))
	assert.NotEmpty(t, assigned["userId"])

	for i := 0; i < 4; i++ {
		env.do(t, http.MethodPost, "/api/search-history/record",
			map[string]interface{}{"userId": fmt.Sprintf("u%d", i), "query": "抗倒伏"})
	}

	w, resp = env.do(t, http.MethodGet, "/api/search-history/hot?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw, _ = json.Marshal(resp.Data)
	var hot []models.HotQuery
	require.NoError(t, json.Unmarshal(raw, &hot))
	require.Len(t, hot, 1)
	assert.Equal(t, "抗倒伏", hot[0].Query)
	assert.Equal(t, int64(5), hot[0].SearchCount)
	assert.Equal(t, 1, hot[0].Rank)

	w, _ = env.do(t, http.MethodGet, "/api/search-history/user?userId=u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/search-history/user/抗倒伏?userId=u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/search-history/user?userId=u2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecommendRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t, testSeeds()...)

	w, resp := env.do(t, http.MethodGet, "/api/recommend/trending?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw, _ := json.Marshal(resp.Data)
	var recs []models.Recommendation
	require.NoError(t, json.Unmarshal(raw, &recs))
	require.NotEmpty(t, recs)
	// 审定年份新的在前
	assert.Equal(t, "济麦22", recs[0].Seed.VarietyName)

	w, _ = env.do(t, http.MethodGet, "/api/recommend/guess-like?userId=nobody", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/recommend/similar/%d", recs[0].Seed.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/recommend/similar/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/recommend/feedback",
		map[string]interface{}{"userId": "u1", "seedId": 1, "action": "click"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSemanticUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.seedAndRebuild(t)

	w, _ := env.do(t, http.MethodGet, "/api/semantic-search/search?query=优质水稻", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/semantic-search/index", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthRoute(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"index_ready":false`)

	env.seedAndRebuild(t)
	w, _ = env.do(t, http.MethodGet, "/health", nil)
	assert.Contains(t, w.Body.String(), `"index_ready":true`)
}
