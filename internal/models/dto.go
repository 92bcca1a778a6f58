package models

// 推荐来源常量
const (
	RecommendContentBased = "content-based" // 基于搜索内容
	RecommendUserProfile  = "user-profile"  // 基于用户画像
	RecommendTrending     = "trending"      // 热门趋势
	RecommendSimilar      = "similar"       // 相似品种
)

// PagedResult 分页结果，页码从0开始
type PagedResult struct {
	Items    []Seed `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// AdvancedSearchRequest 多条件组合检索请求
// 各条件之间取交集，单个条件内的多值取并集
type AdvancedSearchRequest struct {
	Keyword         string   `json:"keyword"`
	CropTypes       []string `json:"cropTypes"`
	Regions         []string `json:"regions"`
	YearFrom        int      `json:"yearFrom"`
	YearTo          int      `json:"yearTo"`
	Companies       []string `json:"companies"`
	Applicants      []string `json:"applicants"`
	Breeders        []string `json:"breeders"`
	IsGMO           *bool    `json:"isGMO"`
	SuitableRegions []string `json:"suitableRegions"`
	Page            int      `json:"page"`
	PageSize        int      `json:"pageSize"`
	SortBy          string   `json:"sortBy"`
	SortOrder       string   `json:"sortOrder"`
}

// Recommendation 推荐结果条目
type Recommendation struct {
	Seed   Seed    `json:"seed"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
	Source string  `json:"source"`
}

// SemanticHit 语义检索命中，相似度已归一化到[0,1]
type SemanticHit struct {
	Seed       Seed    `json:"seed"`
	Similarity float64 `json:"similarity"`
}

// ApprovalCharacteristics 特征特性视图
type ApprovalCharacteristics struct {
	GrowthPeriod  string `json:"growthPeriod"`
	PlantHeight   string `json:"plantHeight"`
	Resistance    string `json:"resistance"`
	QualityTraits string `json:"qualityTraits"`
}

// ApprovalYieldPerformance 产量表现视图
type ApprovalYieldPerformance struct {
	YieldSummary   string        `json:"yieldSummary"`
	ComparisonData string        `json:"comparisonData"`
	YieldData      []YieldRecord `json:"yieldData"`
}

// ApprovalCultivation 栽培技术视图
type ApprovalCultivation struct {
	Requirements string `json:"requirements"`
	Techniques   string `json:"techniques"`
	Precautions  string `json:"precautions"`
}

// ApprovalOpinionView 审定意见视图
type ApprovalOpinionView struct {
	Opinion              string   `json:"opinion"`
	SuitableRegions      []string `json:"suitableRegions"`
	PlantingRestrictions string   `json:"plantingRestrictions"`
}

// ApprovalDetails 审定详情的分组视图，按业务板块组织字段
type ApprovalDetails struct {
	Approval         *SeedApproval            `json:"approval"`
	Characteristics  ApprovalCharacteristics  `json:"characteristics"`
	YieldPerformance ApprovalYieldPerformance `json:"yieldPerformance"`
	Cultivation      ApprovalCultivation      `json:"cultivation"`
	Opinion          ApprovalOpinionView      `json:"opinion"`
}

// NewApprovalDetails 从审定记录构建分组视图
func NewApprovalDetails(a *SeedApproval) *ApprovalDetails {
	if a == nil {
		return nil
	}
	return &ApprovalDetails{
		Approval: a,
		Characteristics: ApprovalCharacteristics{
			GrowthPeriod:  a.GrowthPeriod,
			PlantHeight:   a.PlantHeight,
			Resistance:    a.Resistance,
			QualityTraits: a.QualityTraits,
		},
		YieldPerformance: ApprovalYieldPerformance{
			YieldSummary:   a.YieldSummary,
			ComparisonData: a.ComparisonData,
			YieldData:      a.YieldData,
		},
		Cultivation: ApprovalCultivation{
			Requirements: a.CultivationRequirements,
			Techniques:   a.CultivationTechniques,
			Precautions:  a.CultivationPrecautions,
		},
		Opinion: ApprovalOpinionView{
			Opinion:              a.ApprovalOpinion,
			SuitableRegions:      a.SuitableRegions,
			PlantingRestrictions: a.PlantingRestrictions,
		},
	}
}
