// Package store 封装种子数据与检索历史的数据库访问
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"seedsearch/internal/config"
	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
)

// 允许的排序字段，防止拼接进ORDER BY的任意输入
var sortableColumns = map[string]string{
	"approvalYear":   "approval_year",
	"company":        "company",
	"varietyName":    "variety_name",
	"approvalNumber": "approval_number",
}

// Store 数据库访问层
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// New 打开数据库连接并完成表结构迁移
func New(cfg *config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.ErrDatabaseConnection("打开数据库失败", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&models.Seed{}, &models.SeedApproval{}, &models.SearchHistory{}); err != nil {
			return nil, errors.ErrDatabaseConnection("数据库迁移失败", err)
		}
	}

	return &Store{
		db:  db,
		log: logger.NewLogger("store"),
	}, nil
}

// NewWithDB 使用已有连接构造，供测试使用
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db, log: logger.NewLogger("store")}
}

// DB 暴露底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateSeed 新增种子品种
func (s *Store) CreateSeed(ctx context.Context, seed *models.Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(seed).Error; err != nil {
		return errors.ErrDatabaseQuery("创建种子记录失败", err)
	}
	return nil
}

// GetSeed 按主键查询种子品种
func (s *Store) GetSeed(ctx context.Context, id int64) (*models.Seed, error) {
	var seed models.Seed
	err := s.db.WithContext(ctx).First(&seed, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrResourceNotFound("seed", fmt.Sprintf("%d", id))
		}
		return nil, errors.ErrDatabaseQuery("查询种子记录失败", err)
	}
	return &seed, nil
}

// GetSeedsByIDs 批量按主键查询，结果保持入参顺序
func (s *Store) GetSeedsByIDs(ctx context.Context, ids []int64) ([]models.Seed, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var seeds []models.Seed
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&seeds).Error; err != nil {
		return nil, errors.ErrDatabaseQuery("批量查询种子记录失败", err)
	}
	byID := make(map[int64]models.Seed, len(seeds))
	for _, sd := range seeds {
		byID[sd.ID] = sd
	}
	ordered := make([]models.Seed, 0, len(ids))
	for _, id := range ids {
		if sd, ok := byID[id]; ok {
			ordered = append(ordered, sd)
		}
	}
	return ordered, nil
}

// GetSeedByApprovalNumber 按审定编号精确查询
func (s *Store) GetSeedByApprovalNumber(ctx context.Context, number string) (*models.Seed, error) {
	var seed models.Seed
	err := s.db.WithContext(ctx).Where("approval_number = ?", number).First(&seed).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrResourceNotFound("seed", number)
		}
		return nil, errors.ErrDatabaseQuery("查询种子记录失败", err)
	}
	return &seed, nil
}

// UpdateSeed 合并非零值字段更新，返回更新后的完整记录
func (s *Store) UpdateSeed(ctx context.Context, id int64, patch *models.Seed) (*models.Seed, error) {
	existing, err := s.GetSeed(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.ID = 0
	if err := s.db.WithContext(ctx).Model(existing).Updates(patch).Error; err != nil {
		return nil, errors.ErrDatabaseQuery("更新种子记录失败", err)
	}
	return s.GetSeed(ctx, id)
}

// DeleteSeed 删除种子品种
func (s *Store) DeleteSeed(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&models.Seed{}, id)
	if res.Error != nil {
		return errors.ErrDatabaseQuery("删除种子记录失败", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrResourceNotFound("seed", fmt.Sprintf("%d", id))
	}
	return nil
}

// ListOptions 列表查询选项，页码从0开始
type ListOptions struct {
	Page      int
	PageSize  int
	CropType  string
	Region    string
	YearFrom  int
	YearTo    int
	Company   string
	SortBy    string
	SortOrder string
}

// orderClause 将排序选项转为安全的ORDER BY，默认按审定年份倒序
func orderClause(sortBy, sortOrder string) string {
	col, ok := sortableColumns[sortBy]
	if !ok {
		col = "approval_year"
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, id DESC", col, dir)
}

// ListSeeds 条件分页列表
func (s *Store) ListSeeds(ctx context.Context, opts ListOptions) (*models.PagedResult, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	if opts.Page < 0 {
		opts.Page = 0
	}

	q := s.db.WithContext(ctx).Model(&models.Seed{})
	if opts.CropType != "" {
		q = q.Where("crop_type = ?", opts.CropType)
	}
	if opts.Region != "" {
		q = q.Where("approval_region = ?", opts.Region)
	}
	if opts.YearFrom > 0 {
		q = q.Where("approval_year >= ?", opts.YearFrom)
	}
	if opts.YearTo > 0 {
		q = q.Where("approval_year <= ?", opts.YearTo)
	}
	if opts.Company != "" {
		q = q.Where("company = ?", opts.Company)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, errors.ErrDatabaseQuery("统计种子记录失败", err)
	}

	var seeds []models.Seed
	err := q.Order(orderClause(opts.SortBy, opts.SortOrder)).
		Offset(opts.Page * opts.PageSize).
		Limit(opts.PageSize).
		Find(&seeds).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("查询种子列表失败", err)
	}

	return &models.PagedResult{
		Items:    seeds,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
	}, nil
}

// SearchSeedsLike 数据库模糊检索，倒排索引不可用时的降级路径
func (s *Store) SearchSeedsLike(ctx context.Context, keyword string, page, pageSize int) (*models.PagedResult, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if page < 0 {
		page = 0
	}

	pattern := "%" + keyword + "%"
	q := s.db.WithContext(ctx).Model(&models.Seed{}).
		Where("variety_name LIKE ? OR approval_number LIKE ? OR company LIKE ? OR description LIKE ?",
			pattern, pattern, pattern, pattern)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, errors.ErrDatabaseQuery("统计模糊检索结果失败", err)
	}

	var seeds []models.Seed
	err := q.Order("approval_year DESC, id DESC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&seeds).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("模糊检索失败", err)
	}

	return &models.PagedResult{Items: seeds, Total: total, Page: page, PageSize: pageSize}, nil
}

// CountSeeds 种子总数
func (s *Store) CountSeeds(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Seed{}).Count(&total).Error; err != nil {
		return 0, errors.ErrDatabaseQuery("统计种子总数失败", err)
	}
	return total, nil
}

// ListSeedsChunk 按主键升序分块读取，用于全量重建索引
func (s *Store) ListSeedsChunk(ctx context.Context, afterID int64, limit int) ([]models.Seed, error) {
	var seeds []models.Seed
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&seeds).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("分块读取种子记录失败", err)
	}
	return seeds, nil
}

// ListTrendingSeeds 最近审定的品种，按年份与主键倒序
func (s *Store) ListTrendingSeeds(ctx context.Context, minYear, limit int) ([]models.Seed, error) {
	var seeds []models.Seed
	err := s.db.WithContext(ctx).
		Where("approval_year >= ?", minYear).
		Order("approval_year DESC, id DESC").
		Limit(limit).
		Find(&seeds).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("查询热门品种失败", err)
	}
	return seeds, nil
}

// ListSimilarSeeds 同作物同审定地区的相似品种，排除自身
func (s *Store) ListSimilarSeeds(ctx context.Context, cropType, region string, excludeID int64, limit int) ([]models.Seed, error) {
	q := s.db.WithContext(ctx).Where("id <> ?", excludeID)
	if cropType != "" {
		q = q.Where("crop_type = ?", cropType)
	}
	if region != "" {
		q = q.Where("approval_region = ?", region)
	}
	var seeds []models.Seed
	err := q.Order("approval_year DESC, id DESC").Limit(limit).Find(&seeds).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("查询相似品种失败", err)
	}
	return seeds, nil
}

// CreateApproval 新增审定详情
func (s *Store) CreateApproval(ctx context.Context, approval *models.SeedApproval) error {
	if err := approval.Validate(); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(approval).Error; err != nil {
		return errors.ErrDatabaseQuery("创建审定详情失败", err)
	}
	return nil
}

// GetApproval 按主键查询审定详情
func (s *Store) GetApproval(ctx context.Context, id string) (*models.SeedApproval, error) {
	var approval models.SeedApproval
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&approval).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrResourceNotFound("approval", id)
		}
		return nil, errors.ErrDatabaseQuery("查询审定详情失败", err)
	}
	return &approval, nil
}

// GetApprovalByNumber 按审定编号查询审定详情
func (s *Store) GetApprovalByNumber(ctx context.Context, number string) (*models.SeedApproval, error) {
	var approval models.SeedApproval
	err := s.db.WithContext(ctx).Where("approval_number = ?", number).First(&approval).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrResourceNotFound("approval", number)
		}
		return nil, errors.ErrDatabaseQuery("查询审定详情失败", err)
	}
	return &approval, nil
}

// UpdateApproval 合并非零值字段更新审定详情，版本号加一
func (s *Store) UpdateApproval(ctx context.Context, id string, patch *models.SeedApproval) (*models.SeedApproval, error) {
	existing, err := s.GetApproval(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.ID = ""
	patch.Version = existing.Version + 1
	if err := s.db.WithContext(ctx).Model(existing).Updates(patch).Error; err != nil {
		return nil, errors.ErrDatabaseQuery("更新审定详情失败", err)
	}
	return s.GetApproval(ctx, id)
}

// DeleteApproval 删除审定详情
func (s *Store) DeleteApproval(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SeedApproval{})
	if res.Error != nil {
		return errors.ErrDatabaseQuery("删除审定详情失败", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrResourceNotFound("approval", id)
	}
	return nil
}

// ListApprovalsChunk 按主键升序分块读取审定详情
func (s *Store) ListApprovalsChunk(ctx context.Context, afterID string, limit int) ([]models.SeedApproval, error) {
	var approvals []models.SeedApproval
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&approvals).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("分块读取审定详情失败", err)
	}
	return approvals, nil
}

// GetApprovalsByIDs 批量按主键查询审定详情
func (s *Store) GetApprovalsByIDs(ctx context.Context, ids []string) ([]models.SeedApproval, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var approvals []models.SeedApproval
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&approvals).Error; err != nil {
		return nil, errors.ErrDatabaseQuery("批量查询审定详情失败", err)
	}
	return approvals, nil
}

// distinctColumn 非空去重取值，升序
func (s *Store) distinctColumn(ctx context.Context, column string) ([]string, error) {
	var values []string
	err := s.db.WithContext(ctx).
		Model(&models.Seed{}).
		Where(column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("查询去重取值失败", err)
	}
	return values, nil
}

// DistinctCompanies 已收录的企业清单
func (s *Store) DistinctCompanies(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "company")
}

// DistinctCropTypes 已收录的作物类型清单
func (s *Store) DistinctCropTypes(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "crop_type")
}

// DistinctRegions 已收录的审定地区清单
func (s *Store) DistinctRegions(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "approval_region")
}

// distinctApprovalColumn 审定详情表的非空去重取值，升序
func (s *Store) distinctApprovalColumn(ctx context.Context, column string) ([]string, error) {
	var values []string
	err := s.db.WithContext(ctx).
		Model(&models.SeedApproval{}).
		Where(column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("查询审定去重取值失败", err)
	}
	return values, nil
}

// DistinctApplicants 已收录的申请单位清单
func (s *Store) DistinctApplicants(ctx context.Context) ([]string, error) {
	return s.distinctApprovalColumn(ctx, "applicant")
}

// DistinctBreeders 已收录的育种单位清单
func (s *Store) DistinctBreeders(ctx context.Context) ([]string, error) {
	return s.distinctApprovalColumn(ctx, "breeder")
}

// DistinctApprovalAuthorities 已收录的审定机构清单
func (s *Store) DistinctApprovalAuthorities(ctx context.Context) ([]string, error) {
	return s.distinctApprovalColumn(ctx, "approval_authority")
}

// SaveHistory 保存一条检索历史
func (s *Store) SaveHistory(ctx context.Context, h *models.SearchHistory) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return errors.ErrDatabaseQuery("保存检索历史失败", err)
	}
	return nil
}

// TopQueries 最近七天的热门检索词，按次数倒序
func (s *Store) TopQueries(ctx context.Context, limit int) ([]models.HotQuery, error) {
	since := time.Now().AddDate(0, 0, -7)
	var rows []models.HotQuery
	err := s.db.WithContext(ctx).
		Model(&models.SearchHistory{}).
		Select("query, COUNT(*) AS search_count").
		Where("created_at >= ?", since).
		Group("query").
		Order("search_count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("统计热门检索词失败", err)
	}
	return rows, nil
}

// UserHistory 用户最近的去重检索词，按时间倒序
func (s *Store) UserHistory(ctx context.Context, userID string, limit int) ([]string, error) {
	var queries []string
	err := s.db.WithContext(ctx).
		Model(&models.SearchHistory{}).
		Where("user_id = ?", userID).
		Group("query").
		Order("MAX(created_at) DESC").
		Limit(limit).
		Pluck("query", &queries).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("查询用户检索历史失败", err)
	}
	return queries, nil
}

// UserHistoryRows 用户最近的原始检索记录
func (s *Store) UserHistoryRows(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error) {
	var rows []models.SearchHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.ErrDatabaseQuery("查询用户检索记录失败", err)
	}
	return rows, nil
}

// ClearHistory 清空用户的全部检索历史
func (s *Store) ClearHistory(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SearchHistory{}).Error; err != nil {
		return errors.ErrDatabaseQuery("清空检索历史失败", err)
	}
	return nil
}

// DeleteHistory 删除用户的单条检索历史
func (s *Store) DeleteHistory(ctx context.Context, id int64, userID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.SearchHistory{})
	if res.Error != nil {
		return errors.ErrDatabaseQuery("删除检索历史失败", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrResourceNotFound("search_history", fmt.Sprintf("%d", id))
	}
	return nil
}

// DeleteHistoryByQuery 删除用户某个检索词的全部历史
func (s *Store) DeleteHistoryByQuery(ctx context.Context, userID, query string) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND query = ?", userID, query).Delete(&models.SearchHistory{})
	if res.Error != nil {
		return errors.ErrDatabaseQuery("删除检索历史失败", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrResourceNotFound("search_history", query)
	}
	return nil
}
