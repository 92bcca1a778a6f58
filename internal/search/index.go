package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"seedsearch/internal/config"
	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
)

// 多分析面的字段名，主字段之外的检索面
const (
	FieldVarietyNameKw = "varietyNameKw" // 原文精确面
	FieldVarietyNamePy = "varietyNamePy" // 连写全拼面
	FieldCompanyKw     = "companyKw"
	FieldApplicantKw   = "applicantKw"
	FieldBreederKw     = "breederKw"
)

const (
	seedsIndexDir     = "seeds.bleve"
	approvalsIndexDir = "approvals.bleve"
)

// Index 封装种子与审定详情两个倒排索引的生命周期
type Index struct {
	mu        sync.RWMutex
	seeds     bleve.Index
	approvals bleve.Index
	path      string
	log       *logger.Logger
}

// NewIndex 打开或创建倒排索引，路径为空时使用内存索引
func NewIndex(cfg *config.LexicalConfig) (*Index, error) {
	idx := &Index{
		path: cfg.Path,
		log:  logger.NewLogger("search-index"),
	}

	// 词典只在首次加载时生效，需在建立映射前注入扩展词典
	var dicts []string
	if cfg.DictExtra != "" {
		dicts = append(dicts, cfg.DictExtra)
	}
	if _, err := sharedSegmenter(dicts...); err != nil {
		return nil, errors.ErrLexicalIndex("加载分词词典失败", err)
	}

	seeds, err := openOrCreate(cfg.Path, seedsIndexDir, seedIndexMapping())
	if err != nil {
		return nil, errors.ErrLexicalIndex("打开种子索引失败", err)
	}
	approvals, err := openOrCreate(cfg.Path, approvalsIndexDir, approvalIndexMapping())
	if err != nil {
		_ = seeds.Close()
		return nil, errors.ErrLexicalIndex("打开审定索引失败", err)
	}

	idx.seeds = seeds
	idx.approvals = approvals
	idx.log.WithFields(logger.Fields{"path": cfg.Path}).Info("倒排索引就绪")
	return idx, nil
}

func openOrCreate(basePath, dir string, im mapping.IndexMapping) (bleve.Index, error) {
	if basePath == "" {
		return bleve.NewMemOnly(im)
	}
	full := filepath.Join(basePath, dir)
	index, err := bleve.Open(full)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return bleve.New(full, im)
	}
	return index, err
}

// registerAnalyzers 在索引映射上注册中文与拼音分析器
func registerAnalyzers(im *mapping.IndexMappingImpl) error {
	if err := im.AddCustomAnalyzer(AnalyzerZhMax, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     TokenizerGseMax,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return err
	}
	if err := im.AddCustomAnalyzer(AnalyzerZhSmart, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     TokenizerGseSearch,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return err
	}
	if err := im.AddCustomAnalyzer(AnalyzerPinyinFull, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     TokenizerGseMax,
		"token_filters": []string{lowercase.Name, FilterPinyinFull},
	}); err != nil {
		return err
	}
	return im.AddCustomAnalyzer(AnalyzerPinyinFirst, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     TokenizerGseMax,
		"token_filters": []string{lowercase.Name, FilterPinyinFirst},
	})
}

func textField(analyzer string) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = analyzer
	return fm
}

func faceField(name, analyzer string) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Name = name
	fm.Analyzer = analyzer
	return fm
}

// seedIndexMapping 种子索引结构
// 品种名带四个检索面：中文分词、原文精确、连写全拼、首字母缩写字段单列
func seedIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	if err := registerAnalyzers(im); err != nil {
		panic(fmt.Sprintf("注册分析器失败: %v", err))
	}

	doc := bleve.NewDocumentMapping()

	doc.AddFieldMappingsAt("varietyName",
		textField(AnalyzerZhMax),
		faceField(FieldVarietyNameKw, keyword.Name),
		faceField(FieldVarietyNamePy, AnalyzerPinyinFull),
	)
	doc.AddFieldMappingsAt("varietyNamePinyin", textField(standard.Name))
	doc.AddFieldMappingsAt("varietyNamePinyinShort", textField(keyword.Name))

	doc.AddFieldMappingsAt("company",
		textField(AnalyzerZhMax),
		faceField(FieldCompanyKw, keyword.Name),
	)
	doc.AddFieldMappingsAt("companyPinyin", textField(standard.Name))
	doc.AddFieldMappingsAt("companyPhone", textField(keyword.Name))
	doc.AddFieldMappingsAt("companyAddress", textField(AnalyzerZhMax))

	doc.AddFieldMappingsAt("approvalNumber", textField(keyword.Name))
	doc.AddFieldMappingsAt("cropType", textField(keyword.Name))
	doc.AddFieldMappingsAt("approvalRegion", textField(keyword.Name))
	doc.AddFieldMappingsAt("description", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("characteristics", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("adaptiveRegions", textField(AnalyzerZhMax))

	doc.AddFieldMappingsAt("id", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("approvalYear", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("createdAt", bleve.NewDateTimeFieldMapping())
	doc.AddFieldMappingsAt("updatedAt", bleve.NewDateTimeFieldMapping())

	im.DefaultMapping = doc
	return im
}

// approvalIndexMapping 审定详情索引结构
func approvalIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	if err := registerAnalyzers(im); err != nil {
		panic(fmt.Sprintf("注册分析器失败: %v", err))
	}

	doc := bleve.NewDocumentMapping()

	doc.AddFieldMappingsAt("varietyName",
		textField(AnalyzerZhMax),
		faceField(FieldVarietyNameKw, keyword.Name),
		faceField(FieldVarietyNamePy, AnalyzerPinyinFull),
	)
	doc.AddFieldMappingsAt("varietyNamePinyin", textField(standard.Name))
	doc.AddFieldMappingsAt("varietyNamePinyinShort", textField(keyword.Name))

	doc.AddFieldMappingsAt("applicant",
		textField(AnalyzerZhMax),
		faceField(FieldApplicantKw, keyword.Name),
	)
	doc.AddFieldMappingsAt("applicantPinyin", textField(standard.Name))
	doc.AddFieldMappingsAt("breeder",
		textField(AnalyzerZhMax),
		faceField(FieldBreederKw, keyword.Name),
	)
	doc.AddFieldMappingsAt("breederPinyin", textField(standard.Name))

	doc.AddFieldMappingsAt("approvalNumber", textField(keyword.Name))
	doc.AddFieldMappingsAt("cropName", textField(keyword.Name))
	doc.AddFieldMappingsAt("approvalAuthority", textField(keyword.Name))
	doc.AddFieldMappingsAt("varietySource", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("detailedDescription", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("resistance", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("qualityTraits", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("yieldSummary", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("cultivationTechniques", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("approvalOpinion", textField(AnalyzerZhMax))
	doc.AddFieldMappingsAt("suitableRegions", textField(keyword.Name))

	doc.AddFieldMappingsAt("isGMO", bleve.NewBooleanFieldMapping())
	doc.AddFieldMappingsAt("approvalYear", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("version", bleve.NewNumericFieldMapping())

	yield := bleve.NewDocumentMapping()
	yield.AddFieldMappingsAt("year", bleve.NewNumericFieldMapping())
	yield.AddFieldMappingsAt("location", textField(keyword.Name))
	yield.AddFieldMappingsAt("yieldValue", bleve.NewNumericFieldMapping())
	yield.AddFieldMappingsAt("comparisonVariety", textField(keyword.Name))
	doc.AddSubDocumentMapping("yieldData", yield)

	im.DefaultMapping = doc
	return im
}

// SeedDocID 种子在倒排索引中的文档ID
func SeedDocID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// IndexSeed 写入或更新单条种子文档
func (x *Index) IndexSeed(doc *models.SeedDoc) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := x.seeds.Index(SeedDocID(doc.ID), doc); err != nil {
		return errors.ErrLexicalIndex("写入种子文档失败", err)
	}
	return nil
}

// IndexSeeds 批量写入种子文档
func (x *Index) IndexSeeds(docs []models.SeedDoc) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	batch := x.seeds.NewBatch()
	for i := range docs {
		if err := batch.Index(SeedDocID(docs[i].ID), &docs[i]); err != nil {
			return errors.ErrLexicalIndex("构建种子批次失败", err)
		}
	}
	if err := x.seeds.Batch(batch); err != nil {
		return errors.ErrLexicalIndex("批量写入种子文档失败", err)
	}
	return nil
}

// DeleteSeed 从索引中移除种子文档
func (x *Index) DeleteSeed(id int64) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := x.seeds.Delete(SeedDocID(id)); err != nil {
		return errors.ErrLexicalIndex("删除种子文档失败", err)
	}
	return nil
}

// IndexApproval 写入或更新单条审定文档
func (x *Index) IndexApproval(doc *models.ApprovalDoc) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := x.approvals.Index(doc.ID, doc); err != nil {
		return errors.ErrLexicalIndex("写入审定文档失败", err)
	}
	return nil
}

// IndexApprovals 批量写入审定文档
func (x *Index) IndexApprovals(docs []models.ApprovalDoc) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	batch := x.approvals.NewBatch()
	for i := range docs {
		if err := batch.Index(docs[i].ID, &docs[i]); err != nil {
			return errors.ErrLexicalIndex("构建审定批次失败", err)
		}
	}
	if err := x.approvals.Batch(batch); err != nil {
		return errors.ErrLexicalIndex("批量写入审定文档失败", err)
	}
	return nil
}

// DeleteApproval 从索引中移除审定文档
func (x *Index) DeleteApproval(id string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := x.approvals.Delete(id); err != nil {
		return errors.ErrLexicalIndex("删除审定文档失败", err)
	}
	return nil
}

// ResetSeeds 清空种子索引，全量重建前调用
// 倒排索引没有原生的整体清空，采用关闭后重建
func (x *Index) ResetSeeds() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	fresh, err := x.recreate(x.seeds, seedsIndexDir, seedIndexMapping())
	if err != nil {
		return errors.ErrLexicalIndex("重建种子索引失败", err)
	}
	x.seeds = fresh
	return nil
}

// ResetApprovals 清空审定索引
func (x *Index) ResetApprovals() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	fresh, err := x.recreate(x.approvals, approvalsIndexDir, approvalIndexMapping())
	if err != nil {
		return errors.ErrLexicalIndex("重建审定索引失败", err)
	}
	x.approvals = fresh
	return nil
}

func (x *Index) recreate(old bleve.Index, dir string, im mapping.IndexMapping) (bleve.Index, error) {
	if err := old.Close(); err != nil {
		return nil, err
	}
	if x.path == "" {
		return bleve.NewMemOnly(im)
	}
	full := filepath.Join(x.path, dir)
	if err := os.RemoveAll(full); err != nil {
		return nil, err
	}
	return bleve.New(full, im)
}

// SeedCount 种子索引文档数
func (x *Index) SeedCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, err := x.seeds.DocCount()
	if err != nil {
		return 0, errors.ErrLexicalQuery("统计索引文档失败", err)
	}
	return n, nil
}

// Close 关闭全部索引
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.seeds.Close(); err != nil {
		return err
	}
	return x.approvals.Close()
}

// 条件操作符
const (
	OpMatch    = "match"    // 分词匹配
	OpTerm     = "term"     // 精确匹配
	OpPrefix   = "prefix"   // 前缀
	OpContains = "contains" // 子串
	OpRange    = "range"    // 数值区间
	OpBool     = "bool"     // 布尔
)

// Clause 单个检索条件，多个Values之间取并集
type Clause struct {
	Field    string
	Op       string
	Values   []string
	Min      *float64
	Max      *float64
	Bool     *bool
	Analyzer string
	Boost    float64
}

// Criteria 组合检索条件，Must内各条件取交集，Should内至少命中一个
type Criteria struct {
	Must   []Clause
	Should []Clause
}

// Options 检索分页与排序选项，From为0起始偏移
type Options struct {
	From   int
	Size   int
	SortBy []string
}

// Result 检索命中，按相关度或排序键有序
type Result struct {
	IDs   []string
	Total uint64
}

// clauseQuery 将单个条件翻译为索引查询，多值并集
func clauseQuery(c Clause) query.Query {
	switch c.Op {
	case OpRange:
		inclusive := true
		q := bleve.NewNumericRangeInclusiveQuery(c.Min, c.Max, &inclusive, &inclusive)
		q.SetField(c.Field)
		return q
	case OpBool:
		b := false
		if c.Bool != nil {
			b = *c.Bool
		}
		q := bleve.NewBoolFieldQuery(b)
		q.SetField(c.Field)
		return q
	}

	group := bleve.NewBooleanQuery()
	for _, v := range c.Values {
		var q query.Query
		switch c.Op {
		case OpTerm:
			tq := bleve.NewTermQuery(v)
			tq.SetField(c.Field)
			if c.Boost > 0 {
				tq.SetBoost(c.Boost)
			}
			q = tq
		case OpPrefix:
			pq := bleve.NewPrefixQuery(v)
			pq.SetField(c.Field)
			if c.Boost > 0 {
				pq.SetBoost(c.Boost)
			}
			q = pq
		case OpContains:
			wq := bleve.NewWildcardQuery("*" + v + "*")
			wq.SetField(c.Field)
			if c.Boost > 0 {
				wq.SetBoost(c.Boost)
			}
			q = wq
		default:
			mq := bleve.NewMatchQuery(v)
			mq.SetField(c.Field)
			if c.Analyzer != "" {
				mq.Analyzer = c.Analyzer
			}
			if c.Boost > 0 {
				mq.SetBoost(c.Boost)
			}
			q = mq
		}
		group.AddShould(q)
	}
	return group
}

// buildQuery 组合条件树
func buildQuery(c Criteria) query.Query {
	if len(c.Must) == 0 && len(c.Should) == 0 {
		return bleve.NewMatchAllQuery()
	}
	root := bleve.NewBooleanQuery()
	for _, cl := range c.Must {
		root.AddMust(clauseQuery(cl))
	}
	if len(c.Should) > 0 {
		if len(c.Must) == 0 {
			for _, cl := range c.Should {
				root.AddShould(clauseQuery(cl))
			}
		} else {
			// 有Must时Should会退化为纯加权，包一层强制至少命中一个
			group := bleve.NewBooleanQuery()
			for _, cl := range c.Should {
				group.AddShould(clauseQuery(cl))
			}
			root.AddMust(group)
		}
	}
	return root
}

// SearchSeeds 在种子索引上执行组合检索
func (x *Index) SearchSeeds(ctx context.Context, c Criteria, opts Options) (*Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return runSearch(ctx, x.seeds, c, opts)
}

// SearchApprovals 在审定索引上执行组合检索
func (x *Index) SearchApprovals(ctx context.Context, c Criteria, opts Options) (*Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return runSearch(ctx, x.approvals, c, opts)
}

func runSearch(ctx context.Context, idx bleve.Index, c Criteria, opts Options) (*Result, error) {
	if opts.Size <= 0 {
		opts.Size = 10
	}
	if opts.From < 0 {
		opts.From = 0
	}

	req := bleve.NewSearchRequestOptions(buildQuery(c), opts.Size, opts.From, false)
	if len(opts.SortBy) > 0 {
		req.SortBy(opts.SortBy)
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.ErrLexicalQuery("检索执行失败", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return &Result{IDs: ids, Total: res.Total}, nil
}
