// Package handlers HTTP接口层，统一JSON信封与错误映射
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
)

// Response 统一响应信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

// respondError 按错误分类映射HTTP状态码，未知错误一律500
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	detail := err.Error()

	if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
		message = appErr.Message
		detail = string(appErr.Code)
	}

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("请求处理失败")
	}

	c.JSON(status, Response{
		Code:    status,
		Message: message,
		Error:   detail,
	})
}

func respondBadRequest(c *gin.Context, log *logger.Logger, param, reason string) {
	respondError(c, log, errors.ErrInvalidInput(param, reason))
}

// queryInt 解析整型查询参数，缺省或非法时取默认值
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
