package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType 错误类型枚举
type ErrorType string

const (
	// 系统级错误
	ErrorTypeSystem   ErrorType = "SYSTEM"
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeConfig   ErrorType = "CONFIG"

	// 业务级错误
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"

	// 集成错误
	ErrorTypeLexical   ErrorType = "LEXICAL"
	ErrorTypeVector    ErrorType = "VECTOR"
	ErrorTypeEmbedding ErrorType = "EMBEDDING"

	// 索引尚未就绪
	ErrorTypeDegraded ErrorType = "DEGRADED"
)

// ErrorCode 错误码
type ErrorCode string

const (
	// 系统错误码 (E1xxx)
	ErrCodeSystemGeneric   ErrorCode = "E1000"
	ErrCodeDatabaseConnect ErrorCode = "E1001"
	ErrCodeDatabaseQuery   ErrorCode = "E1002"
	ErrCodeConfigMissing   ErrorCode = "E1004"
	ErrCodeConfigInvalid   ErrorCode = "E1005"

	// 业务错误码 (E2xxx)
	ErrCodeValidationFailed ErrorCode = "E2001"
	ErrCodeResourceNotFound ErrorCode = "E2002"
	ErrCodeInvalidInput     ErrorCode = "E2004"

	// 集成错误码 (E3xxx)
	ErrCodeLexicalIndex  ErrorCode = "E3001"
	ErrCodeLexicalQuery  ErrorCode = "E3002"
	ErrCodeEmbeddingCall ErrorCode = "E3003"
	ErrCodeVectorStorage ErrorCode = "E3004"
	ErrCodeIndexNotReady ErrorCode = "E3005"
)

// AppError 统一错误结构
type AppError struct {
	Type      ErrorType   `json:"type"`
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Details   string      `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Context   interface{} `json:"context,omitempty"`
	Cause     error       `json:"-"` // 原始错误，不序列化
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s - %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap 支持错误链
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New 创建新的应用错误
func New(errorType ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithContext 添加上下文信息
func (e *AppError) WithContext(context interface{}) *AppError {
	e.Context = context
	return e
}

// WithCause 添加原始错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// IsType 检查错误类型
func (e *AppError) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

// HTTPStatus 错误类型到HTTP状态码的映射
func (e *AppError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeDegraded:
		return http.StatusServiceUnavailable
	case ErrorTypeLexical, ErrorTypeVector, ErrorTypeEmbedding, ErrorTypeDatabase:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retriable 后端错误可重试
func (e *AppError) Retriable() bool {
	switch e.Type {
	case ErrorTypeLexical, ErrorTypeVector, ErrorTypeEmbedding, ErrorTypeDatabase, ErrorTypeDegraded:
		return true
	default:
		return false
	}
}

// AsAppError 从错误链中提取AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// 预定义常用错误

// ErrDatabaseConnection 数据库连接错误
func ErrDatabaseConnection(details string, cause error) *AppError {
	return New(ErrorTypeDatabase, ErrCodeDatabaseConnect, "Failed to connect to database").
		WithDetails(details).
		WithCause(cause)
}

// ErrDatabaseQuery 数据库查询错误
func ErrDatabaseQuery(details string, cause error) *AppError {
	return New(ErrorTypeDatabase, ErrCodeDatabaseQuery, "Database query failed").
		WithDetails(details).
		WithCause(cause)
}

// ErrValidationFailed 验证失败错误
func ErrValidationFailed(field, reason string) *AppError {
	return New(ErrorTypeValidation, ErrCodeValidationFailed, "Validation failed").
		WithDetails(fmt.Sprintf("Field '%s': %s", field, reason))
}

// ErrInvalidInput 非法输入错误
func ErrInvalidInput(param, reason string) *AppError {
	return New(ErrorTypeValidation, ErrCodeInvalidInput, "Invalid input").
		WithDetails(fmt.Sprintf("Parameter '%s': %s", param, reason))
}

// ErrConfigMissing 配置缺失错误
func ErrConfigMissing(configKey string) *AppError {
	return New(ErrorTypeConfig, ErrCodeConfigMissing, "Required configuration missing").
		WithDetails(fmt.Sprintf("Missing config key: %s", configKey))
}

// ErrConfigInvalid 配置无效错误
func ErrConfigInvalid(configKey, reason string) *AppError {
	return New(ErrorTypeConfig, ErrCodeConfigInvalid, "Invalid configuration").
		WithDetails(fmt.Sprintf("Config key '%s': %s", configKey, reason))
}

// ErrResourceNotFound 资源未找到错误
func ErrResourceNotFound(resourceType, resourceID string) *AppError {
	return New(ErrorTypeNotFound, ErrCodeResourceNotFound, "Resource not found").
		WithDetails(fmt.Sprintf("%s with ID '%s' not found", resourceType, resourceID))
}

// ErrLexicalIndex 倒排索引操作错误
func ErrLexicalIndex(details string, cause error) *AppError {
	return New(ErrorTypeLexical, ErrCodeLexicalIndex, "Lexical index operation failed").
		WithDetails(details).
		WithCause(cause)
}

// ErrLexicalQuery 倒排索引查询错误
func ErrLexicalQuery(details string, cause error) *AppError {
	return New(ErrorTypeLexical, ErrCodeLexicalQuery, "Lexical query failed").
		WithDetails(details).
		WithCause(cause)
}

// ErrEmbeddingCall embedding API调用错误
func ErrEmbeddingCall(details string, cause error) *AppError {
	return New(ErrorTypeEmbedding, ErrCodeEmbeddingCall, "Embedding API call failed").
		WithDetails(details).
		WithCause(cause)
}

// ErrVectorStorage 向量存储错误
func ErrVectorStorage(details string, cause error) *AppError {
	return New(ErrorTypeVector, ErrCodeVectorStorage, "Vector storage operation failed").
		WithDetails(details).
		WithCause(cause)
}

// ErrIndexNotReady 索引尚未就绪错误
func ErrIndexNotReady(index string) *AppError {
	return New(ErrorTypeDegraded, ErrCodeIndexNotReady, "Index is not ready").
		WithDetails(fmt.Sprintf("Index '%s' has not been populated yet, retry after reindex", index))
}
