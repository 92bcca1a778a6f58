package models

import (
	"time"
)

// SeedDoc 种子品种的倒排索引投影
// 文本字段同时带三个分析面：中文分词、拼音、keyword，拼音字段由索引器派生
type SeedDoc struct {
	ID                     int64     `json:"id"`
	VarietyName            string    `json:"varietyName"`
	VarietyNamePinyin      string    `json:"varietyNamePinyin"`
	VarietyNamePinyinShort string    `json:"varietyNamePinyinShort"`
	ApprovalNumber         string    `json:"approvalNumber"`
	ApprovalYear           int       `json:"approvalYear"`
	ApprovalRegion         string    `json:"approvalRegion"`
	CropType               string    `json:"cropType"`
	Company                string    `json:"company"`
	CompanyPinyin          string    `json:"companyPinyin"`
	CompanyPhone           string    `json:"companyPhone"`
	CompanyAddress         string    `json:"companyAddress"`
	Description            string    `json:"description"`
	Characteristics        string    `json:"characteristics"`
	AdaptiveRegions        string    `json:"adaptiveRegions"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// ApprovalDoc 种子审定详情的倒排索引投影
type ApprovalDoc struct {
	ID                      string        `json:"id"`
	ApprovalNumber          string        `json:"approvalNumber"`
	VarietyName             string        `json:"varietyName"`
	VarietyNamePinyin       string        `json:"varietyNamePinyin"`
	VarietyNamePinyinShort  string        `json:"varietyNamePinyinShort"`
	CropName                string        `json:"cropName"`
	ApprovalYear            int           `json:"approvalYear"`
	Applicant               string        `json:"applicant"`
	ApplicantPinyin         string        `json:"applicantPinyin"`
	Breeder                 string        `json:"breeder"`
	BreederPinyin           string        `json:"breederPinyin"`
	VarietySource           string        `json:"varietySource"`
	IsGMO                   bool          `json:"isGMO"`
	LicenseInfo             string        `json:"licenseInfo"`
	VarietyRights           string        `json:"varietyRights"`
	ApprovalAuthority       string        `json:"approvalAuthority"`
	DetailedDescription     string        `json:"detailedDescription"`
	GrowthPeriod            string        `json:"growthPeriod"`
	PlantHeight             string        `json:"plantHeight"`
	Resistance              string        `json:"resistance"`
	QualityTraits           string        `json:"qualityTraits"`
	YieldSummary            string        `json:"yieldSummary"`
	ComparisonData          string        `json:"comparisonData"`
	CultivationRequirements string        `json:"cultivationRequirements"`
	CultivationTechniques   string        `json:"cultivationTechniques"`
	CultivationPrecautions  string        `json:"cultivationPrecautions"`
	ApprovalOpinion         string        `json:"approvalOpinion"`
	SuitableRegions         []string      `json:"suitableRegions"`
	PlantingRestrictions    string        `json:"plantingRestrictions"`
	YieldData               []YieldRecord `json:"yieldData"`
	Version                 int           `json:"version"`
	CreatedAt               time.Time     `json:"createdAt"`
	UpdatedAt               time.Time     `json:"updatedAt"`
}
