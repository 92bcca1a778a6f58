package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"seedsearch/internal/errors"
	"seedsearch/internal/history"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/vector"
)

// VectorRebuilder 向量库全量重建，单飞互斥
type VectorRebuilder interface {
	RebuildVectors(ctx context.Context) (int, error)
}

// SemanticHandler 语义检索处理器
// 向量服务未配置时所有入口降级为503
type SemanticHandler struct {
	semantic  *vector.SemanticService
	rebuilder VectorRebuilder
	history   *history.Service
	logger    *logger.Logger
}

// NewSemanticHandler 创建语义检索处理器，semantic可为nil
func NewSemanticHandler(semantic *vector.SemanticService, rebuilder VectorRebuilder, hist *history.Service) *SemanticHandler {
	return &SemanticHandler{
		semantic:  semantic,
		rebuilder: rebuilder,
		history:   hist,
		logger:    logger.NewLogger("semantic-handler"),
	}
}

func (h *SemanticHandler) requireSemantic(c *gin.Context) bool {
	if h.semantic == nil {
		respondError(c, h.logger, errors.ErrIndexNotReady("vector"))
		return false
	}
	return true
}

// Search 向量相似度检索
func (h *SemanticHandler) Search(c *gin.Context) {
	if !h.requireSemantic(c) {
		return
	}
	query := c.Query("query")
	if query == "" {
		respondBadRequest(c, h.logger, "query", "cannot be empty")
		return
	}

	hits, err := h.semantic.Search(c.Request.Context(), query, queryInt(c, "topK", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if h.history != nil {
		ev := history.Event{
			UserID:      c.Query("userId"),
			Query:       query,
			SearchType:  models.SearchTypeSemantic,
			ResultCount: len(hits),
			IPAddress:   c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
		}
		go h.history.RecordEvent(context.Background(), ev)
	}
	respondOK(c, hits)
}

// Reindex 全量重建向量库
func (h *SemanticHandler) Reindex(c *gin.Context) {
	if !h.requireSemantic(c) {
		return
	}
	count, err := h.rebuilder.RebuildVectors(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"indexed": count})
}
