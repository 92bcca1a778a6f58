// Package history 记录检索行为并统计热门检索词
package history

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/store"
)

const (
	defaultHotLimit = 10
	maxHotLimit     = 100
)

// Service 检索历史服务
type Service struct {
	store *store.Store
	log   *logger.Logger
}

// NewService 创建检索历史服务
func NewService(st *store.Store) *Service {
	return &Service{
		store: st,
		log:   logger.NewLogger("history-service"),
	}
}

// NewDeviceID 为匿名用户生成设备标识
func NewDeviceID() string {
	return uuid.NewString()
}

// Event 一次检索行为，IP与UA可选
type Event struct {
	UserID      string
	Query       string
	SearchType  models.SearchType
	ResultCount int
	IPAddress   string
	UserAgent   string
}

// Record 保存一条检索记录
// 记录失败只影响统计，不影响检索主链路，错误在此吞掉
func (s *Service) Record(ctx context.Context, userID, query string, searchType models.SearchType, resultCount int) {
	s.RecordEvent(ctx, Event{
		UserID:      userID,
		Query:       query,
		SearchType:  searchType,
		ResultCount: resultCount,
	})
}

// RecordEvent 保存一条带请求上下文的检索记录
func (s *Service) RecordEvent(ctx context.Context, ev Event) {
	ev.Query = strings.TrimSpace(ev.Query)
	if ev.Query == "" {
		return
	}
	if ev.UserID == "" {
		ev.UserID = "anonymous"
	}
	if !models.IsValidSearchType(ev.SearchType) {
		ev.SearchType = models.SearchTypeKeyword
	}

	h := &models.SearchHistory{
		UserID:      ev.UserID,
		Query:       ev.Query,
		SearchType:  ev.SearchType,
		ResultCount: ev.ResultCount,
		IPAddress:   ev.IPAddress,
		UserAgent:   ev.UserAgent,
	}
	if err := s.store.SaveHistory(ctx, h); err != nil {
		s.log.WithError(err).Warn("保存检索历史失败")
	}
}

// HotQueries 最近七天的热门检索词，名次从1开始
func (s *Service) HotQueries(ctx context.Context, limit int) ([]models.HotQuery, error) {
	if limit <= 0 {
		limit = defaultHotLimit
	}
	if limit > maxHotLimit {
		limit = maxHotLimit
	}

	rows, err := s.store.TopQueries(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// UserHistory 用户最近的检索记录
func (s *Service) UserHistory(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.ErrInvalidInput("userId", "cannot be empty")
	}
	if limit <= 0 {
		limit = defaultHotLimit
	}
	if limit > maxHotLimit {
		limit = maxHotLimit
	}
	return s.store.UserHistoryRows(ctx, userID, limit)
}

// RecentKeywords 用户最近的去重检索词，推荐引擎使用
func (s *Service) RecentKeywords(ctx context.Context, userID string, limit int) ([]string, error) {
	if strings.TrimSpace(userID) == "" || limit <= 0 {
		return nil, nil
	}
	return s.store.UserHistory(ctx, userID, limit)
}

// Clear 清空用户的检索历史
func (s *Service) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.ErrInvalidInput("userId", "cannot be empty")
	}
	return s.store.ClearHistory(ctx, userID)
}

// Delete 删除用户的单条检索历史
func (s *Service) Delete(ctx context.Context, id int64, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.ErrInvalidInput("userId", "cannot be empty")
	}
	return s.store.DeleteHistory(ctx, id, userID)
}

// DeleteQuery 删除用户某个检索词的全部历史
func (s *Service) DeleteQuery(ctx context.Context, userID, query string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.ErrInvalidInput("userId", "cannot be empty")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return errors.ErrInvalidInput("query", "cannot be empty")
	}
	return s.store.DeleteHistoryByQuery(ctx, userID, query)
}
