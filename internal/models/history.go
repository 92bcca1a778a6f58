package models

import (
	"strings"
	"time"

	"seedsearch/internal/errors"
)

// SearchType 搜索类型枚举
type SearchType string

const (
	SearchTypeKeyword  SearchType = "keyword"
	SearchTypeSemantic SearchType = "semantic"
	SearchTypeAdvanced SearchType = "advanced"
)

// IsValidSearchType 验证搜索类型是否有效
func IsValidSearchType(st SearchType) bool {
	switch st {
	case SearchTypeKeyword, SearchTypeSemantic, SearchTypeAdvanced:
		return true
	default:
		return false
	}
}

// SearchHistory 搜索历史记录
// 用于记录用户的搜索行为，便于统计热搜和推荐
type SearchHistory struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      string     `json:"userId" gorm:"column:user_id;index"`
	Query       string     `json:"query" gorm:"column:query;index"`
	SearchType  SearchType `json:"searchType" gorm:"column:search_type"`
	ResultCount int        `json:"resultCount" gorm:"column:result_count"`
	IPAddress   string     `json:"ipAddress,omitempty" gorm:"column:ip_address"`
	UserAgent   string     `json:"userAgent,omitempty" gorm:"column:user_agent"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"column:created_at;index"`
}

// TableName 指定表名
func (SearchHistory) TableName() string {
	return "search_history"
}

// Validate 验证搜索历史数据
func (h *SearchHistory) Validate() error {
	if strings.TrimSpace(h.Query) == "" {
		return errors.ErrValidationFailed("query", "cannot be empty")
	}
	if h.Query != strings.TrimSpace(h.Query) {
		return errors.ErrValidationFailed("query", "must be trimmed")
	}
	if !IsValidSearchType(h.SearchType) {
		return errors.ErrValidationFailed("searchType", "must be one of: keyword, semantic, advanced")
	}
	return nil
}

// HotQuery 热搜词条目
type HotQuery struct {
	Query       string `json:"query"`
	SearchCount int64  `json:"searchCount"`
	Rank        int    `json:"rank"`
}

// UserProfile 用户画像（按请求派生，不落库）
type UserProfile struct {
	UserID            string         `json:"userId"`
	SearchKeywords    []string       `json:"searchKeywords"`    // 最近优先的去重关键词，最多50条
	CropTypeFrequency map[string]int `json:"cropTypeFrequency"` // 作物类型出现频次
	RegionFrequency   map[string]int `json:"regionFrequency"`   // 地区出现频次
	PreferredCropType string         `json:"preferredCropType"` // 频次最高的作物类型，可为空
	PreferredRegion   string         `json:"preferredRegion"`   // 频次最高的地区，可为空
	TotalSearchCount  int            `json:"totalSearchCount"`
	LastSearchTime    time.Time      `json:"lastSearchTime"`
}
