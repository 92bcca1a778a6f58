package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus 健康检查处理器，携带倒排索引就绪状态
type HealthStatus struct {
	ready ReadinessChecker
}

// NewHealthStatus 创建健康检查处理器
func NewHealthStatus(ready ReadinessChecker) *HealthStatus {
	return &HealthStatus{ready: ready}
}

// Check 健康检查
func (h *HealthStatus) Check(c *gin.Context) {
	indexReady := h.ready == nil || h.ready.Ready()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"index_ready": indexReady,
		"timestamp":   time.Now().Unix(),
	})
}
