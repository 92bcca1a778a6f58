package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/search"
	"seedsearch/internal/store"
	syncpkg "seedsearch/internal/sync"
)

// SeedHandler 种子品种CRUD与库表检索处理器
// 写入先落库，索引联动失败不回滚主数据
type SeedHandler struct {
	store    *store.Store
	searcher *search.Service
	indexer  *syncpkg.Indexer
	ready    ReadinessChecker
	logger   *logger.Logger
}

// ReadinessChecker 倒排索引就绪探测
type ReadinessChecker interface {
	Ready() bool
}

// NewSeedHandler 创建种子处理器
func NewSeedHandler(st *store.Store, searcher *search.Service, indexer *syncpkg.Indexer, ready ReadinessChecker) *SeedHandler {
	return &SeedHandler{
		store:    st,
		searcher: searcher,
		indexer:  indexer,
		ready:    ready,
		logger:   logger.NewLogger("seed-handler"),
	}
}

// requireIndex 倒排索引未就绪时对检索请求返回503
func (h *SeedHandler) requireIndex(c *gin.Context) bool {
	if h.ready != nil && !h.ready.Ready() {
		respondError(c, h.logger, errors.ErrIndexNotReady("lexical"))
		return false
	}
	return true
}

func seedIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List 分页列表，页码从0开始
func (h *SeedHandler) List(c *gin.Context) {
	result, err := h.store.ListSeeds(c.Request.Context(), store.ListOptions{
		Page:      queryInt(c, "page", 0),
		PageSize:  queryInt(c, "pageSize", 10),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// Get 按主键查询
func (h *SeedHandler) Get(c *gin.Context) {
	id, ok := seedIDParam(c)
	if !ok {
		respondBadRequest(c, h.logger, "id", "must be a positive integer")
		return
	}
	seed, err := h.store.GetSeed(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, seed)
}

// Create 新增品种并联动索引
func (h *SeedHandler) Create(c *gin.Context) {
	var seed models.Seed
	if err := c.ShouldBindJSON(&seed); err != nil {
		respondBadRequest(c, h.logger, "body", err.Error())
		return
	}
	if err := h.store.CreateSeed(c.Request.Context(), &seed); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.indexer.UpsertSeed(c.Request.Context(), &seed)
	respondCreated(c, seed)
}

// Update 合并非零值字段更新并联动索引
func (h *SeedHandler) Update(c *gin.Context) {
	id, ok := seedIDParam(c)
	if !ok {
		respondBadRequest(c, h.logger, "id", "must be a positive integer")
		return
	}
	var patch models.Seed
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, h.logger, "body", err.Error())
		return
	}
	seed, err := h.store.UpdateSeed(c.Request.Context(), id, &patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.indexer.UpsertSeed(c.Request.Context(), seed)
	respondOK(c, seed)
}

// Delete 删除品种并从索引移除
func (h *SeedHandler) Delete(c *gin.Context) {
	id, ok := seedIDParam(c)
	if !ok {
		respondBadRequest(c, h.logger, "id", "must be a positive integer")
		return
	}
	if err := h.store.DeleteSeed(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.indexer.DeleteSeed(c.Request.Context(), id)
	respondOK(c, gin.H{"id": id})
}

// DBSearch 数据库模糊检索，不依赖倒排索引
func (h *SeedHandler) DBSearch(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		respondBadRequest(c, h.logger, "keyword", "cannot be empty")
		return
	}
	result, err := h.store.SearchSeedsLike(c.Request.Context(), keyword,
		queryInt(c, "page", 0), queryInt(c, "pageSize", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// Filter 多条件库表过滤
func (h *SeedHandler) Filter(c *gin.Context) {
	result, err := h.store.ListSeeds(c.Request.Context(), store.ListOptions{
		Page:      queryInt(c, "page", 0),
		PageSize:  queryInt(c, "pageSize", 10),
		CropType:  c.Query("cropType"),
		Region:    c.Query("approvalRegion"),
		YearFrom:  queryInt(c, "startYear", 0),
		YearTo:    queryInt(c, "endYear", 0),
		Company:   c.Query("company"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// ApprovalDetails 品种审定详情的分组视图
func (h *SeedHandler) ApprovalDetails(c *gin.Context) {
	id, ok := seedIDParam(c)
	if !ok {
		respondBadRequest(c, h.logger, "id", "must be a positive integer")
		return
	}
	seed, err := h.store.GetSeed(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	approval, err := h.store.GetApprovalByNumber(c.Request.Context(), seed.ApprovalNumber)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, models.NewApprovalDetails(approval))
}

// AdvancedSearch 多条件组合检索，请求体为条件集合
func (h *SeedHandler) AdvancedSearch(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	var req models.AdvancedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, "body", err.Error())
		return
	}
	result, err := h.searcher.AdvancedSearch(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// ByApplicant 按申请单位检索
func (h *SeedHandler) ByApplicant(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	applicant := c.Query("applicant")
	if applicant == "" {
		respondBadRequest(c, h.logger, "applicant", "cannot be empty")
		return
	}
	result, err := h.searcher.SearchByApplicant(c.Request.Context(), applicant,
		queryInt(c, "page", 0), queryInt(c, "pageSize", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// ByBreeder 按育种单位检索
func (h *SeedHandler) ByBreeder(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	breeder := c.Query("breeder")
	if breeder == "" {
		respondBadRequest(c, h.logger, "breeder", "cannot be empty")
		return
	}
	result, err := h.searcher.SearchByBreeder(c.Request.Context(), breeder,
		queryInt(c, "page", 0), queryInt(c, "pageSize", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// ByApprovalNumber 审定编号精确查询，未命中返回404
func (h *SeedHandler) ByApprovalNumber(c *gin.Context) {
	number := c.Query("approvalNumber")
	if number == "" {
		respondBadRequest(c, h.logger, "approvalNumber", "cannot be empty")
		return
	}
	seed, err := h.searcher.SearchByApprovalNumber(c.Request.Context(), number)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, seed)
}

// ByGMO 按转基因标记检索审定详情
func (h *SeedHandler) ByGMO(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	isGMO := c.DefaultQuery("isGMO", "false") == "true"
	approvals, total, err := h.searcher.SearchApprovalsByGMO(c.Request.Context(), isGMO,
		queryInt(c, "page", 0), queryInt(c, "pageSize", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"items": approvals, "total": total})
}

// ApprovalNumberSuggestions 审定编号前缀联想
func (h *SeedHandler) ApprovalNumberSuggestions(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	prefix := c.Query("prefix")
	if prefix == "" {
		respondBadRequest(c, h.logger, "prefix", "cannot be empty")
		return
	}
	suggestions, err := h.searcher.SuggestApprovalNumbers(c.Request.Context(), prefix)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, suggestions)
}

// CropTypes 作物类型清单
func (h *SeedHandler) CropTypes(c *gin.Context) {
	values, err := h.searcher.ListCropTypes(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, values)
}

// Regions 审定地区清单
func (h *SeedHandler) Regions(c *gin.Context) {
	values, err := h.searcher.ListRegions(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, values)
}

// Companies 企业清单
func (h *SeedHandler) Companies(c *gin.Context) {
	values, err := h.searcher.ListCompanies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, values)
}

// Applicants 申请单位清单
func (h *SeedHandler) Applicants(c *gin.Context) {
	values, err := h.store.DistinctApplicants(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, values)
}

// Breeders 育种单位清单
func (h *SeedHandler) Breeders(c *gin.Context) {
	values, err := h.store.DistinctBreeders(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, values)
}

// ApprovalAuthorities 审定机构清单
func (h *SeedHandler) ApprovalAuthorities(c *gin.Context) {
	values, err := h.store.DistinctApprovalAuthorities(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, values)
}
