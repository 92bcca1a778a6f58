package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"seedsearch/internal/errors"
)

// CropType 作物类型枚举值
const (
	CropTypeRice    = "水稻"
	CropTypeWheat   = "小麦"
	CropTypeCorn    = "玉米"
	CropTypeSoybean = "大豆"
	CropTypeCotton  = "棉花"
	CropTypePeanut  = "花生"
)

// CropTypes 支持的作物类型词表
var CropTypes = []string{
	CropTypeRice, CropTypeWheat, CropTypeCorn,
	CropTypeSoybean, CropTypeCotton, CropTypePeanut,
}

// Regions 审定地区词表
var Regions = []string{
	"华北", "华东", "华中", "华南", "西南", "西北", "东北",
}

// IsValidCropType 验证作物类型是否有效
func IsValidCropType(cropType string) bool {
	for _, ct := range CropTypes {
		if cropType == ct {
			return true
		}
	}
	return false
}

// Seed 种子品种数据模型（权威记录）
type Seed struct {
	ID              int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	VarietyName     string         `json:"varietyName" gorm:"column:variety_name;index"`
	ApprovalNumber  string         `json:"approvalNumber" gorm:"column:approval_number;uniqueIndex"`
	ApprovalYear    int            `json:"approvalYear" gorm:"column:approval_year;index"`
	ApprovalRegion  string         `json:"approvalRegion" gorm:"column:approval_region"`
	CropType        string         `json:"cropType" gorm:"column:crop_type;index"`
	Company         string         `json:"company" gorm:"column:company"`
	CompanyPhone    string         `json:"companyPhone" gorm:"column:company_phone"`
	CompanyAddress  string         `json:"companyAddress" gorm:"column:company_address"`
	Description     string         `json:"description" gorm:"column:description"`
	Characteristics datatypes.JSON `json:"characteristics" gorm:"column:characteristics"`
	AdaptiveRegions datatypes.JSON `json:"adaptiveRegions" gorm:"column:adaptive_regions"`
	CreatedAt       time.Time      `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" gorm:"column:updated_at"`
}

// TableName 指定表名
func (Seed) TableName() string {
	return "seeds"
}

// Validate 验证种子数据完整性
func (s *Seed) Validate() error {
	if strings.TrimSpace(s.VarietyName) == "" {
		return errors.ErrValidationFailed("varietyName", "cannot be empty")
	}

	if strings.TrimSpace(s.ApprovalNumber) == "" {
		return errors.ErrValidationFailed("approvalNumber", "cannot be empty")
	}

	maxYear := time.Now().Year() + 1
	if s.ApprovalYear < 1950 || s.ApprovalYear > maxYear {
		return errors.ErrValidationFailed("approvalYear",
			fmt.Sprintf("must be between 1950 and %d", maxYear))
	}

	if s.CropType != "" && !IsValidCropType(s.CropType) {
		return errors.ErrValidationFailed("cropType",
			fmt.Sprintf("unknown crop type: %s", s.CropType))
	}

	return nil
}

// EmbeddingContent 生成向量化用的综合文本
// 将品种的多个字段按固定顺序组合成一个文本，空字段跳过
func (s *Seed) EmbeddingContent() string {
	var sb strings.Builder

	if s.VarietyName != "" {
		sb.WriteString("品种名: ")
		sb.WriteString(s.VarietyName)
		sb.WriteString(" ")
	}
	if s.CropType != "" {
		sb.WriteString("作物类型: ")
		sb.WriteString(s.CropType)
		sb.WriteString(" ")
	}
	if s.Company != "" {
		sb.WriteString("企业: ")
		sb.WriteString(s.Company)
		sb.WriteString(" ")
	}
	if s.ApprovalNumber != "" {
		sb.WriteString("审定编号: ")
		sb.WriteString(s.ApprovalNumber)
		sb.WriteString(" ")
	}
	if s.ApprovalYear > 0 {
		sb.WriteString("审定年份: ")
		sb.WriteString(fmt.Sprintf("%d", s.ApprovalYear))
		sb.WriteString(" ")
	}
	if s.ApprovalRegion != "" {
		sb.WriteString("审定地区: ")
		sb.WriteString(s.ApprovalRegion)
		sb.WriteString(" ")
	}
	if s.Description != "" {
		sb.WriteString("描述: ")
		sb.WriteString(s.Description)
		sb.WriteString(" ")
	}
	if len(s.Characteristics) > 0 {
		sb.WriteString("特征: ")
		sb.Write(s.Characteristics)
		sb.WriteString(" ")
	}
	if len(s.AdaptiveRegions) > 0 {
		sb.WriteString("适应地区: ")
		sb.Write(s.AdaptiveRegions)
	}

	return strings.TrimSpace(sb.String())
}

// YieldRecord 年度产量数据
type YieldRecord struct {
	Year              int     `json:"year"`
	Location          string  `json:"location"`
	YieldValue        float64 `json:"yieldValue"`
	YieldUnit         string  `json:"yieldUnit"`
	ComparisonVariety string  `json:"comparisonVariety"`
	ComparisonYield   float64 `json:"comparisonYield"`
}

// SeedApproval 种子审定详情（完整监管元数据）
type SeedApproval struct {
	ID                      string                           `json:"id" gorm:"primaryKey"`
	ApprovalNumber          string                           `json:"approvalNumber" gorm:"column:approval_number;uniqueIndex"`
	VarietyName             string                           `json:"varietyName" gorm:"column:variety_name"`
	CropName                string                           `json:"cropName" gorm:"column:crop_name"`
	ApprovalYear            int                              `json:"approvalYear" gorm:"column:approval_year"`
	Applicant               string                           `json:"applicant" gorm:"column:applicant"`
	Breeder                 string                           `json:"breeder" gorm:"column:breeder"`
	VarietySource           string                           `json:"varietySource" gorm:"column:variety_source"`
	IsGMO                   bool                             `json:"isGMO" gorm:"column:is_gmo"`
	LicenseInfo             string                           `json:"licenseInfo" gorm:"column:license_info"`
	VarietyRights           string                           `json:"varietyRights" gorm:"column:variety_rights"`
	ApprovalAuthority       string                           `json:"approvalAuthority" gorm:"column:approval_authority"`
	DetailedDescription     string                           `json:"detailedDescription" gorm:"column:detailed_description"`
	GrowthPeriod            string                           `json:"growthPeriod" gorm:"column:growth_period"`
	PlantHeight             string                           `json:"plantHeight" gorm:"column:plant_height"`
	Resistance              string                           `json:"resistance" gorm:"column:resistance"`
	QualityTraits           string                           `json:"qualityTraits" gorm:"column:quality_traits"`
	YieldSummary            string                           `json:"yieldSummary" gorm:"column:yield_summary"`
	ComparisonData          string                           `json:"comparisonData" gorm:"column:comparison_data"`
	CultivationRequirements string                           `json:"cultivationRequirements" gorm:"column:cultivation_requirements"`
	CultivationTechniques   string                           `json:"cultivationTechniques" gorm:"column:cultivation_techniques"`
	CultivationPrecautions  string                           `json:"cultivationPrecautions" gorm:"column:cultivation_precautions"`
	ApprovalOpinion         string                           `json:"approvalOpinion" gorm:"column:approval_opinion"`
	SuitableRegions         datatypes.JSONSlice[string]      `json:"suitableRegions" gorm:"column:suitable_regions"`
	PlantingRestrictions    string                           `json:"plantingRestrictions" gorm:"column:planting_restrictions"`
	YieldData               datatypes.JSONSlice[YieldRecord] `json:"yieldData" gorm:"column:yield_data"`
	Version                 int                              `json:"version" gorm:"column:version"`
	CreatedAt               time.Time                        `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt               time.Time                        `json:"updatedAt" gorm:"column:updated_at"`
}

// TableName 指定表名
func (SeedApproval) TableName() string {
	return "seed_approvals"
}

// Validate 验证审定详情数据
func (a *SeedApproval) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.ErrValidationFailed("id", "cannot be empty")
	}
	if strings.TrimSpace(a.ApprovalNumber) == "" {
		return errors.ErrValidationFailed("approvalNumber", "cannot be empty")
	}
	return nil
}
