package search

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	suggestLimit    = 10

	// 审定条件预筛的候选上限
	approvalPrefilterLimit = 1000
)

// 相关度优先，年份与主键倒序兜底
var relevanceSort = []string{"-_score", "-approvalYear", "-id"}

// 年份倒序，列表类检索用
var recencySort = []string{"-approvalYear", "-id"}

// Service 检索服务，倒排索引负责召回，数据库负责回表
type Service struct {
	idx   *Index
	store *store.Store
	log   *logger.Logger
}

// NewService 创建检索服务
func NewService(idx *Index, st *store.Store) *Service {
	return &Service{
		idx:   idx,
		store: st,
		log:   logger.NewLogger("search-service"),
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func isASCIILetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// keywordClauses 关键字检索的召回面
// 中文走分词字段，字母串额外走拼音全拼与首字母缩写
func keywordClauses(q string) []Clause {
	clauses := []Clause{
		{Field: FieldVarietyNameKw, Op: OpTerm, Values: []string{q}, Boost: 5},
		{Field: "varietyName", Op: OpMatch, Values: []string{q}, Analyzer: AnalyzerZhSmart, Boost: 3},
		{Field: "company", Op: OpMatch, Values: []string{q}, Analyzer: AnalyzerZhSmart, Boost: 2},
		{Field: "description", Op: OpMatch, Values: []string{q}, Analyzer: AnalyzerZhSmart},
		{Field: "characteristics", Op: OpMatch, Values: []string{q}, Analyzer: AnalyzerZhSmart},
		{Field: "adaptiveRegions", Op: OpMatch, Values: []string{q}, Analyzer: AnalyzerZhSmart},
		{Field: "approvalNumber", Op: OpContains, Values: []string{q}},
	}
	if isASCIILetters(q) {
		lower := strings.ToLower(q)
		clauses = append(clauses,
			Clause{Field: "varietyNamePinyinShort", Op: OpPrefix, Values: []string{lower}, Boost: 3},
			Clause{Field: FieldVarietyNamePy, Op: OpMatch, Values: []string{lower}, Boost: 2},
			Clause{Field: "varietyNamePinyin", Op: OpMatch, Values: []string{lower}},
			Clause{Field: "companyPinyin", Op: OpMatch, Values: []string{lower}},
		)
	}
	return clauses
}

// resolveSeeds 将索引命中回表成种子记录，保持命中顺序
func (s *Service) resolveSeeds(ctx context.Context, res *Result, page, pageSize int) (*models.PagedResult, error) {
	ids := make([]int64, 0, len(res.IDs))
	for _, raw := range res.IDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	seeds, err := s.store.GetSeedsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &models.PagedResult{
		Items:    seeds,
		Total:    int64(res.Total),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Search 关键字检索，支持中文、拼音全拼与首字母
// 倒排索引故障时降级为数据库模糊检索
func (s *Service) Search(ctx context.Context, keyword string, page, pageSize int) (*models.PagedResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, errors.ErrInvalidInput("keyword", "cannot be empty")
	}
	page, pageSize = normalizePage(page, pageSize)

	res, err := s.idx.SearchSeeds(ctx,
		Criteria{Should: keywordClauses(keyword)},
		Options{From: page * pageSize, Size: pageSize, SortBy: relevanceSort})
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Type == errors.ErrorTypeLexical {
			s.log.WithError(err).Warn("倒排检索失败，降级为数据库模糊检索")
			return s.store.SearchSeedsLike(ctx, keyword, page, pageSize)
		}
		return nil, err
	}
	return s.resolveSeeds(ctx, res, page, pageSize)
}

// SearchByCropType 按作物类型检索
func (s *Service) SearchByCropType(ctx context.Context, cropType string, page, pageSize int) (*models.PagedResult, error) {
	cropType = strings.TrimSpace(cropType)
	if cropType == "" {
		return nil, errors.ErrInvalidInput("cropType", "cannot be empty")
	}
	page, pageSize = normalizePage(page, pageSize)

	res, err := s.idx.SearchSeeds(ctx,
		Criteria{Must: []Clause{{Field: "cropType", Op: OpTerm, Values: []string{cropType}}}},
		Options{From: page * pageSize, Size: pageSize, SortBy: recencySort})
	if err != nil {
		return nil, err
	}
	return s.resolveSeeds(ctx, res, page, pageSize)
}

// SearchByRegion 按审定地区检索
func (s *Service) SearchByRegion(ctx context.Context, region string, page, pageSize int) (*models.PagedResult, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return nil, errors.ErrInvalidInput("region", "cannot be empty")
	}
	page, pageSize = normalizePage(page, pageSize)

	res, err := s.idx.SearchSeeds(ctx,
		Criteria{Must: []Clause{{Field: "approvalRegion", Op: OpTerm, Values: []string{region}}}},
		Options{From: page * pageSize, Size: pageSize, SortBy: recencySort})
	if err != nil {
		return nil, err
	}
	return s.resolveSeeds(ctx, res, page, pageSize)
}

// SearchByCompany 按企业名称检索，企业名分词匹配
func (s *Service) SearchByCompany(ctx context.Context, company string, page, pageSize int) (*models.PagedResult, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, errors.ErrInvalidInput("company", "cannot be empty")
	}
	page, pageSize = normalizePage(page, pageSize)

	res, err := s.idx.SearchSeeds(ctx,
		Criteria{Should: []Clause{
			{Field: FieldCompanyKw, Op: OpTerm, Values: []string{company}, Boost: 3},
			{Field: "company", Op: OpMatch, Values: []string{company}, Analyzer: AnalyzerZhSmart},
		}},
		Options{From: page * pageSize, Size: pageSize, SortBy: relevanceSort})
	if err != nil {
		return nil, err
	}
	return s.resolveSeeds(ctx, res, page, pageSize)
}

// SearchByApprovalNumber 按审定编号精确查询
func (s *Service) SearchByApprovalNumber(ctx context.Context, number string) (*models.Seed, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, errors.ErrInvalidInput("approvalNumber", "cannot be empty")
	}
	return s.store.GetSeedByApprovalNumber(ctx, number)
}

// SuggestApprovalNumbers 审定编号前缀联想，最多十条
func (s *Service) SuggestApprovalNumbers(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.ErrInvalidInput("prefix", "cannot be empty")
	}

	res, err := s.idx.SearchSeeds(ctx,
		Criteria{Must: []Clause{{Field: "approvalNumber", Op: OpPrefix, Values: []string{prefix}}}},
		Options{From: 0, Size: suggestLimit, SortBy: []string{"approvalNumber"}})
	if err != nil {
		return nil, err
	}

	paged, err := s.resolveSeeds(ctx, res, 0, suggestLimit)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(paged.Items))
	for _, seed := range paged.Items {
		numbers = append(numbers, seed.ApprovalNumber)
	}
	return numbers, nil
}

// hasApprovalConditions 是否包含只存在于审定详情上的条件
func hasApprovalConditions(req *models.AdvancedSearchRequest) bool {
	return len(req.Applicants) > 0 || len(req.Breeders) > 0 ||
		req.IsGMO != nil || len(req.SuitableRegions) > 0
}

// prefilterByApprovals 用审定条件预筛出审定编号集合
func (s *Service) prefilterByApprovals(ctx context.Context, req *models.AdvancedSearchRequest) ([]string, error) {
	var must []Clause
	if len(req.Applicants) > 0 {
		must = append(must, Clause{Field: FieldApplicantKw, Op: OpTerm, Values: req.Applicants})
	}
	if len(req.Breeders) > 0 {
		must = append(must, Clause{Field: FieldBreederKw, Op: OpTerm, Values: req.Breeders})
	}
	if req.IsGMO != nil {
		must = append(must, Clause{Field: "isGMO", Op: OpBool, Bool: req.IsGMO})
	}
	if len(req.SuitableRegions) > 0 {
		must = append(must, Clause{Field: "suitableRegions", Op: OpTerm, Values: req.SuitableRegions})
	}

	res, err := s.idx.SearchApprovals(ctx, Criteria{Must: must},
		Options{From: 0, Size: approvalPrefilterLimit})
	if err != nil {
		return nil, err
	}
	approvals, err := s.store.GetApprovalsByIDs(ctx, res.IDs)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(approvals))
	for _, a := range approvals {
		numbers = append(numbers, a.ApprovalNumber)
	}
	return numbers, nil
}

// AdvancedSearch 多条件组合检索
// 条件间取交集；审定详情上的条件先在审定索引预筛成编号集合
func (s *Service) AdvancedSearch(ctx context.Context, req *models.AdvancedSearchRequest) (*models.PagedResult, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	var c Criteria
	if kw := strings.TrimSpace(req.Keyword); kw != "" {
		c.Should = keywordClauses(kw)
	}
	if len(req.CropTypes) > 0 {
		c.Must = append(c.Must, Clause{Field: "cropType", Op: OpTerm, Values: req.CropTypes})
	}
	if len(req.Regions) > 0 {
		c.Must = append(c.Must, Clause{Field: "approvalRegion", Op: OpTerm, Values: req.Regions})
	}
	if len(req.Companies) > 0 {
		c.Must = append(c.Must, Clause{Field: FieldCompanyKw, Op: OpTerm, Values: req.Companies})
	}
	if req.YearFrom > 0 || req.YearTo > 0 {
		var min, max *float64
		if req.YearFrom > 0 {
			v := float64(req.YearFrom)
			min = &v
		}
		if req.YearTo > 0 {
			v := float64(req.YearTo)
			max = &v
		}
		c.Must = append(c.Must, Clause{Field: "approvalYear", Op: OpRange, Min: min, Max: max})
	}

	if hasApprovalConditions(req) {
		numbers, err := s.prefilterByApprovals(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(numbers) == 0 {
			return &models.PagedResult{Items: []models.Seed{}, Page: page, PageSize: pageSize}, nil
		}
		c.Must = append(c.Must, Clause{Field: "approvalNumber", Op: OpTerm, Values: numbers})
	}

	sort := recencySort
	if strings.TrimSpace(req.Keyword) != "" {
		sort = relevanceSort
	}
	if req.SortBy != "" {
		field := req.SortBy
		if req.SortOrder != "asc" {
			field = "-" + field
		}
		sort = []string{field, "-id"}
	}

	res, err := s.idx.SearchSeeds(ctx, c,
		Options{From: page * pageSize, Size: pageSize, SortBy: sort})
	if err != nil {
		return nil, err
	}
	return s.resolveSeeds(ctx, res, page, pageSize)
}

// SearchByApplicant 按申请单位检索种子
func (s *Service) SearchByApplicant(ctx context.Context, applicant string, page, pageSize int) (*models.PagedResult, error) {
	if strings.TrimSpace(applicant) == "" {
		return nil, errors.ErrInvalidInput("applicant", "cannot be empty")
	}
	return s.AdvancedSearch(ctx, &models.AdvancedSearchRequest{
		Applicants: []string{applicant},
		Page:       page,
		PageSize:   pageSize,
	})
}

// SearchByBreeder 按育种单位检索种子
func (s *Service) SearchByBreeder(ctx context.Context, breeder string, page, pageSize int) (*models.PagedResult, error) {
	if strings.TrimSpace(breeder) == "" {
		return nil, errors.ErrInvalidInput("breeder", "cannot be empty")
	}
	return s.AdvancedSearch(ctx, &models.AdvancedSearchRequest{
		Breeders: []string{breeder},
		Page:     page,
		PageSize: pageSize,
	})
}

// SearchApprovalsByGMO 按转基因标记检索审定详情
func (s *Service) SearchApprovalsByGMO(ctx context.Context, isGMO bool, page, pageSize int) ([]models.SeedApproval, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	res, err := s.idx.SearchApprovals(ctx,
		Criteria{Must: []Clause{{Field: "isGMO", Op: OpBool, Bool: &isGMO}}},
		Options{From: page * pageSize, Size: pageSize, SortBy: recencySort})
	if err != nil {
		return nil, 0, err
	}
	approvals, err := s.store.GetApprovalsByIDs(ctx, res.IDs)
	if err != nil {
		return nil, 0, err
	}
	return approvals, int64(res.Total), nil
}

// ListCompanies 企业清单，去重升序
func (s *Service) ListCompanies(ctx context.Context) ([]string, error) {
	return s.store.DistinctCompanies(ctx)
}

// ListCropTypes 作物类型清单，词表顺序在前，库内新增值补在其后
func (s *Service) ListCropTypes(ctx context.Context) ([]string, error) {
	known, err := s.store.DistinctCropTypes(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(models.CropTypes))
	out := make([]string, 0, len(models.CropTypes)+len(known))
	for _, c := range models.CropTypes {
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range known {
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListRegions 审定地区清单
func (s *Service) ListRegions(ctx context.Context) ([]string, error) {
	known, err := s.store.DistinctRegions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(models.Regions))
	out := make([]string, 0, len(models.Regions)+len(known))
	for _, r := range models.Regions {
		seen[r] = true
		out = append(out, r)
	}
	for _, r := range known {
		if !seen[r] {
			out = append(out, r)
		}
	}
	return out, nil
}
