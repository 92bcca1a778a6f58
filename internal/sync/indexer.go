// Package sync 负责数据库、倒排索引与向量库之间的数据同步
package sync

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/pinyin"
	"seedsearch/internal/search"
	"seedsearch/internal/vector"
)

// jsonToText 把JSON字符串数组摊平成可检索文本，解析失败时退回原文
func jsonToText(raw datatypes.JSON) string {
	if len(raw) == 0 {
		return ""
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return strings.Join(items, " ")
	}
	return string(raw)
}

// SeedToDoc 种子记录转倒排索引文档，派生拼音字段
func SeedToDoc(seed *models.Seed) models.SeedDoc {
	return models.SeedDoc{
		ID:                     seed.ID,
		VarietyName:            seed.VarietyName,
		VarietyNamePinyin:      pinyin.Searchable(seed.VarietyName),
		VarietyNamePinyinShort: pinyin.Short(seed.VarietyName),
		ApprovalNumber:         seed.ApprovalNumber,
		ApprovalYear:           seed.ApprovalYear,
		ApprovalRegion:         seed.ApprovalRegion,
		CropType:               seed.CropType,
		Company:                seed.Company,
		CompanyPinyin:          pinyin.Searchable(seed.Company),
		CompanyPhone:           seed.CompanyPhone,
		CompanyAddress:         seed.CompanyAddress,
		Description:            seed.Description,
		Characteristics:        jsonToText(seed.Characteristics),
		AdaptiveRegions:        jsonToText(seed.AdaptiveRegions),
		CreatedAt:              seed.CreatedAt,
		UpdatedAt:              seed.UpdatedAt,
	}
}

// ApprovalToDoc 审定详情转倒排索引文档
func ApprovalToDoc(a *models.SeedApproval) models.ApprovalDoc {
	return models.ApprovalDoc{
		ID:                      a.ID,
		ApprovalNumber:          a.ApprovalNumber,
		VarietyName:             a.VarietyName,
		VarietyNamePinyin:       pinyin.Searchable(a.VarietyName),
		VarietyNamePinyinShort:  pinyin.Short(a.VarietyName),
		CropName:                a.CropName,
		ApprovalYear:            a.ApprovalYear,
		Applicant:               a.Applicant,
		ApplicantPinyin:         pinyin.Searchable(a.Applicant),
		Breeder:                 a.Breeder,
		BreederPinyin:           pinyin.Searchable(a.Breeder),
		VarietySource:           a.VarietySource,
		IsGMO:                   a.IsGMO,
		LicenseInfo:             a.LicenseInfo,
		VarietyRights:           a.VarietyRights,
		ApprovalAuthority:       a.ApprovalAuthority,
		DetailedDescription:     a.DetailedDescription,
		GrowthPeriod:            a.GrowthPeriod,
		PlantHeight:             a.PlantHeight,
		Resistance:              a.Resistance,
		QualityTraits:           a.QualityTraits,
		YieldSummary:            a.YieldSummary,
		ComparisonData:          a.ComparisonData,
		CultivationRequirements: a.CultivationRequirements,
		CultivationTechniques:   a.CultivationTechniques,
		CultivationPrecautions:  a.CultivationPrecautions,
		ApprovalOpinion:         a.ApprovalOpinion,
		SuitableRegions:         a.SuitableRegions,
		PlantingRestrictions:    a.PlantingRestrictions,
		YieldData:               a.YieldData,
		Version:                 a.Version,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
	}
}

// Indexer 单条记录的索引联动
// 数据库写入成功后调用，索引失败只记录日志，不回滚主数据
type Indexer struct {
	idx      *search.Index
	semantic *vector.SemanticService
	log      *logger.Logger
}

// NewIndexer 创建索引联动器，semantic可为nil表示未启用向量检索
func NewIndexer(idx *search.Index, semantic *vector.SemanticService) *Indexer {
	return &Indexer{
		idx:      idx,
		semantic: semantic,
		log:      logger.NewLogger("indexer"),
	}
}

// UpsertSeed 同步种子到倒排索引与向量库
func (i *Indexer) UpsertSeed(ctx context.Context, seed *models.Seed) {
	doc := SeedToDoc(seed)
	if err := i.idx.IndexSeed(&doc); err != nil {
		i.log.WithError(err).WithField("seed_id", seed.ID).Warn("种子倒排索引同步失败")
	}
	if i.semantic != nil {
		if err := i.semantic.IndexSeed(ctx, seed); err != nil {
			i.log.WithError(err).WithField("seed_id", seed.ID).Warn("种子向量同步失败")
		}
	}
}

// DeleteSeed 从倒排索引与向量库移除种子
func (i *Indexer) DeleteSeed(ctx context.Context, seedID int64) {
	if err := i.idx.DeleteSeed(seedID); err != nil {
		i.log.WithError(err).WithField("seed_id", seedID).Warn("种子倒排索引删除失败")
	}
	if i.semantic != nil {
		if err := i.semantic.RemoveSeed(ctx, seedID); err != nil {
			i.log.WithError(err).WithField("seed_id", seedID).Warn("种子向量删除失败")
		}
	}
}

// UpsertApproval 同步审定详情到倒排索引
func (i *Indexer) UpsertApproval(_ context.Context, a *models.SeedApproval) {
	doc := ApprovalToDoc(a)
	if err := i.idx.IndexApproval(&doc); err != nil {
		i.log.WithError(err).WithField("approval_id", a.ID).Warn("审定倒排索引同步失败")
	}
}

// DeleteApproval 从倒排索引移除审定详情
func (i *Indexer) DeleteApproval(_ context.Context, id string) {
	if err := i.idx.DeleteApproval(id); err != nil {
		i.log.WithError(err).WithField("approval_id", id).Warn("审定倒排索引删除失败")
	}
}
