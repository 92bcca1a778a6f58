package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"seedsearch/internal/logger"
	"seedsearch/internal/recommend"
)

// RecommendHandler 推荐接口处理器
type RecommendHandler struct {
	engine *recommend.Engine
	logger *logger.Logger
}

// NewRecommendHandler 创建推荐处理器
func NewRecommendHandler(engine *recommend.Engine) *RecommendHandler {
	return &RecommendHandler{
		engine: engine,
		logger: logger.NewLogger("recommend-handler"),
	}
}

// GuessLike 个性化推荐，无历史用户回退为热门推荐
func (h *RecommendHandler) GuessLike(c *gin.Context) {
	recs, err := h.engine.Personalized(c.Request.Context(), c.Query("userId"), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, recs)
}

// ColdStart 冷启动推荐，当前与热门推荐同源
func (h *RecommendHandler) ColdStart(c *gin.Context) {
	recs, err := h.engine.Trending(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, recs)
}

// Trending 近两年审定的热门品种
func (h *RecommendHandler) Trending(c *gin.Context) {
	recs, err := h.engine.Trending(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, recs)
}

// Similar 同作物同地区的相似品种
func (h *RecommendHandler) Similar(c *gin.Context) {
	seedID, err := strconv.ParseInt(c.Param("seedId"), 10, 64)
	if err != nil || seedID <= 0 {
		respondBadRequest(c, h.logger, "seedId", "must be a positive integer")
		return
	}
	recs, err := h.engine.Similar(c.Request.Context(), seedID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, recs)
}

type feedbackRequest struct {
	UserID string `json:"userId"`
	SeedID int64  `json:"seedId"`
	Action string `json:"action"`
}

// Feedback 接收推荐反馈，当前只记录日志
func (h *RecommendHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, "body", err.Error())
		return
	}
	h.logger.Info("收到推荐反馈", logger.Fields{
		"user_id": req.UserID,
		"seed_id": req.SeedID,
		"action":  req.Action,
	})
	respondOK(c, gin.H{"accepted": true})
}
