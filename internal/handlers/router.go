package handlers

import (
	"github.com/gin-gonic/gin"

	"seedsearch/internal/history"
	"seedsearch/internal/recommend"
	"seedsearch/internal/search"
	"seedsearch/internal/store"
	syncpkg "seedsearch/internal/sync"
	"seedsearch/internal/vector"
)

// Deps 路由装配所需的服务集合
// Semantic与Orchestrator可为nil，对应入口返回503
type Deps struct {
	Store        *store.Store
	Searcher     *search.Service
	Semantic     *vector.SemanticService
	History      *history.Service
	Recommender  *recommend.Engine
	Indexer      *syncpkg.Indexer
	Orchestrator *syncpkg.Orchestrator
}

// NewRouter 装配全部路由
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	var ready ReadinessChecker
	var rebuilder VectorRebuilder
	if deps.Orchestrator != nil {
		ready = deps.Orchestrator
		rebuilder = deps.Orchestrator
	}

	seedHandler := NewSeedHandler(deps.Store, deps.Searcher, deps.Indexer, ready)
	searchHandler := NewSearchHandler(deps.Searcher, deps.History, ready)
	semanticHandler := NewSemanticHandler(deps.Semantic, rebuilder, deps.History)
	historyHandler := NewHistoryHandler(deps.History)
	recommendHandler := NewRecommendHandler(deps.Recommender)
	health := NewHealthStatus(ready)

	r.GET("/health", health.Check)

	seeds := r.Group("/api/seeds")
	{
		seeds.GET("", seedHandler.List)
		seeds.POST("", seedHandler.Create)
		seeds.GET("/search", seedHandler.DBSearch)
		seeds.GET("/filter", seedHandler.Filter)
		seeds.POST("/search/advanced", seedHandler.AdvancedSearch)
		seeds.GET("/search/by-applicant", seedHandler.ByApplicant)
		seeds.GET("/search/by-breeder", seedHandler.ByBreeder)
		seeds.GET("/search/by-approval-number", seedHandler.ByApprovalNumber)
		seeds.GET("/search/gmo", seedHandler.ByGMO)
		seeds.GET("/crop-types", seedHandler.CropTypes)
		seeds.GET("/regions", seedHandler.Regions)
		seeds.GET("/companies", seedHandler.Companies)
		seeds.GET("/applicants", seedHandler.Applicants)
		seeds.GET("/breeders", seedHandler.Breeders)
		seeds.GET("/approval-authorities", seedHandler.ApprovalAuthorities)
		seeds.GET("/approval-number-suggestions", seedHandler.ApprovalNumberSuggestions)
		seeds.GET("/:id", seedHandler.Get)
		seeds.PUT("/:id", seedHandler.Update)
		seeds.DELETE("/:id", seedHandler.Delete)
		seeds.GET("/:id/approval-details", seedHandler.ApprovalDetails)
	}

	searchGroup := r.Group("/api/search")
	{
		searchGroup.GET("/seeds", searchHandler.Seeds)
		searchGroup.GET("/advanced", searchHandler.Advanced)
		searchGroup.GET("/crop-type", searchHandler.CropType)
		searchGroup.GET("/region", searchHandler.Region)
		searchGroup.GET("/company", searchHandler.Company)
	}

	semantic := r.Group("/api/semantic-search")
	{
		semantic.POST("/index", semanticHandler.Reindex)
		semantic.GET("/search", semanticHandler.Search)
	}

	historyGroup := r.Group("/api/search-history")
	{
		historyGroup.POST("/record", historyHandler.Record)
		historyGroup.GET("/hot", historyHandler.Hot)
		historyGroup.GET("/user", historyHandler.User)
		historyGroup.DELETE("/user", historyHandler.ClearUser)
		historyGroup.DELETE("/user/:query", historyHandler.DeleteQuery)
	}

	recommendGroup := r.Group("/api/recommend")
	{
		recommendGroup.GET("/guess-like", recommendHandler.GuessLike)
		recommendGroup.GET("/cold-start", recommendHandler.ColdStart)
		recommendGroup.GET("/trending", recommendHandler.Trending)
		recommendGroup.GET("/similar/:seedId", recommendHandler.Similar)
		recommendGroup.POST("/feedback", recommendHandler.Feedback)
	}

	return r
}
