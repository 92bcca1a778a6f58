package handlers

import (
	"github.com/gin-gonic/gin"

	"seedsearch/internal/history"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
)

// HistoryHandler 检索历史管理处理器
type HistoryHandler struct {
	history *history.Service
	logger  *logger.Logger
}

// NewHistoryHandler 创建检索历史处理器
func NewHistoryHandler(hist *history.Service) *HistoryHandler {
	return &HistoryHandler{
		history: hist,
		logger:  logger.NewLogger("history-handler"),
	}
}

type recordRequest struct {
	UserID      string `json:"userId"`
	Query       string `json:"query" binding:"required"`
	SearchType  string `json:"searchType"`
	ResultCount int    `json:"resultCount"`
}

// Record 显式上报一条检索记录
// 匿名请求分配设备标识并在响应中返回
func (h *HistoryHandler) Record(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, "body", err.Error())
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = history.NewDeviceID()
	}
	h.history.RecordEvent(c.Request.Context(), history.Event{
		UserID:      userID,
		Query:       req.Query,
		SearchType:  models.SearchType(req.SearchType),
		ResultCount: req.ResultCount,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	respondOK(c, gin.H{"userId": userID})
}

// Hot 最近七天热门检索词
func (h *HistoryHandler) Hot(c *gin.Context) {
	queries, err := h.history.HotQueries(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, queries)
}

// User 用户最近的检索记录
func (h *HistoryHandler) User(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		respondBadRequest(c, h.logger, "userId", "cannot be empty")
		return
	}
	rows, err := h.history.UserHistory(c.Request.Context(), userID, queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, rows)
}

// ClearUser 清空用户的全部检索历史
func (h *HistoryHandler) ClearUser(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		respondBadRequest(c, h.logger, "userId", "cannot be empty")
		return
	}
	if err := h.history.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"userId": userID})
}

// DeleteQuery 删除用户某个检索词的全部历史
func (h *HistoryHandler) DeleteQuery(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		respondBadRequest(c, h.logger, "userId", "cannot be empty")
		return
	}
	query := c.Param("query")
	if err := h.history.DeleteQuery(c.Request.Context(), userID, query); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, gin.H{"query": query})
}
