package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"seedsearch/internal/errors"
	"seedsearch/internal/history"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/search"
)

// SearchHandler 倒排索引检索处理器，页码从1开始
type SearchHandler struct {
	searcher *search.Service
	history  *history.Service
	ready    ReadinessChecker
	logger   *logger.Logger
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(searcher *search.Service, hist *history.Service, ready ReadinessChecker) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		history:  hist,
		ready:    ready,
		logger:   logger.NewLogger("search-handler"),
	}
}

func (h *SearchHandler) requireIndex(c *gin.Context) bool {
	if h.ready != nil && !h.ready.Ready() {
		respondError(c, h.logger, errors.ErrIndexNotReady("lexical"))
		return false
	}
	return true
}

// recordAsync 异步落检索历史，失败不影响检索结果
func (h *SearchHandler) recordAsync(c *gin.Context, query string, st models.SearchType, count int) {
	if h.history == nil {
		return
	}
	ev := history.Event{
		UserID:      c.Query("userId"),
		Query:       query,
		SearchType:  st,
		ResultCount: count,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	}
	go h.history.RecordEvent(context.Background(), ev)
}

// page1Based 外部页码从1开始，内部统一换算为0基
func page1Based(c *gin.Context) (int, int) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	return page - 1, queryInt(c, "pageSize", 10)
}

// Seeds 关键词检索，支持中文分词与拼音匹配
func (h *SearchHandler) Seeds(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	keyword := c.Query("keyword")
	if keyword == "" {
		respondBadRequest(c, h.logger, "keyword", "cannot be empty")
		return
	}

	page, pageSize := page1Based(c)
	result, err := h.searcher.Search(c.Request.Context(), keyword, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.recordAsync(c, keyword, models.SearchTypeKeyword, len(result.Items))
	respondOK(c, result)
}

// Advanced 组合条件检索，条件通过查询参数传入
func (h *SearchHandler) Advanced(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}

	page, pageSize := page1Based(c)
	req := &models.AdvancedSearchRequest{
		Keyword:   c.Query("keyword"),
		YearFrom:  queryInt(c, "yearFrom", 0),
		YearTo:    queryInt(c, "yearTo", 0),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if v := c.Query("cropType"); v != "" {
		req.CropTypes = []string{v}
	}
	if v := c.Query("region"); v != "" {
		req.Regions = []string{v}
	}
	if v := c.Query("company"); v != "" {
		req.Companies = []string{v}
	}

	result, err := h.searcher.AdvancedSearch(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if req.Keyword != "" {
		h.recordAsync(c, req.Keyword, models.SearchTypeAdvanced, len(result.Items))
	}
	respondOK(c, result)
}

// CropType 按作物类型检索
func (h *SearchHandler) CropType(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	cropType := c.Query("cropType")
	if cropType == "" {
		respondBadRequest(c, h.logger, "cropType", "cannot be empty")
		return
	}
	page, pageSize := page1Based(c)
	result, err := h.searcher.SearchByCropType(c.Request.Context(), cropType, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// Region 按审定地区检索
func (h *SearchHandler) Region(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	region := c.Query("region")
	if region == "" {
		respondBadRequest(c, h.logger, "region", "cannot be empty")
		return
	}
	page, pageSize := page1Based(c)
	result, err := h.searcher.SearchByRegion(c.Request.Context(), region, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}

// Company 按企业检索
func (h *SearchHandler) Company(c *gin.Context) {
	if !h.requireIndex(c) {
		return
	}
	company := c.Query("company")
	if company == "" {
		respondBadRequest(c, h.logger, "company", "cannot be empty")
		return
	}
	page, pageSize := page1Based(c)
	result, err := h.searcher.SearchByCompany(c.Request.Context(), company, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, result)
}
