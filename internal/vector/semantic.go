package vector

import (
	"context"
	"strings"

	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/store"
)

const (
	defaultTopK = 10
	maxTopK     = 100
)

// Store 向量库能力抽象，ChromaStore为生产实现
type Store interface {
	AddDocuments(ctx context.Context, docs []*Document) error
	UpsertDocument(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context, id string) error
	Reset(ctx context.Context) error
	Search(ctx context.Context, queryVector []float32, topK int, filter map[string]interface{}) ([]Hit, error)
	Count(ctx context.Context) (int32, error)
	HealthCheck(ctx context.Context) error
}

// TextEmbedder 文本向量化能力抽象
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticService 语义检索服务
// 品种描述文本向量化后入库，查询按向量距离召回再回表
type SemanticService struct {
	store    *store.Store
	vectors  Store
	embedder TextEmbedder
	log      *logger.Logger
}

// NewSemanticService 创建语义检索服务
func NewSemanticService(st *store.Store, vs Store, embedder TextEmbedder) *SemanticService {
	return &SemanticService{
		store:    st,
		vectors:  vs,
		embedder: embedder,
		log:      logger.NewLogger("semantic-service"),
	}
}

// buildMetadata 向量文档元数据，检索命中后用于快速展示与过滤
func buildMetadata(seed *models.Seed) map[string]interface{} {
	return map[string]interface{}{
		"seedId":         seed.ID,
		"varietyName":    seed.VarietyName,
		"approvalNumber": seed.ApprovalNumber,
		"cropType":       seed.CropType,
		"company":        seed.Company,
		"approvalYear":   seed.ApprovalYear,
		"approvalRegion": seed.ApprovalRegion,
	}
}

// buildDocument 生成向量文档，返回nil表示该品种无可向量化内容
func (s *SemanticService) buildDocument(ctx context.Context, seed *models.Seed) (*Document, error) {
	content := seed.EmbeddingContent()
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:        DocID(seed.ID),
		Content:   content,
		Embedding: embedding,
		Metadata:  buildMetadata(seed),
	}, nil
}

// IndexSeed 写入或更新单个品种的向量
func (s *SemanticService) IndexSeed(ctx context.Context, seed *models.Seed) error {
	doc, err := s.buildDocument(ctx, seed)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return s.vectors.UpsertDocument(ctx, doc)
}

// IndexSeeds 批量向量化入库，单条embedding失败跳过，返回成功条数
func (s *SemanticService) IndexSeeds(ctx context.Context, seeds []models.Seed) (int, error) {
	docs := make([]*Document, 0, len(seeds))
	for i := range seeds {
		doc, err := s.buildDocument(ctx, &seeds[i])
		if err != nil {
			s.log.WithError(err).Warn("品种向量化失败，已跳过")
			continue
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.vectors.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// RemoveSeed 删除品种向量
func (s *SemanticService) RemoveSeed(ctx context.Context, seedID int64) error {
	return s.vectors.DeleteDocument(ctx, DocID(seedID))
}

// Reset 清空向量集合
func (s *SemanticService) Reset(ctx context.Context) error {
	return s.vectors.Reset(ctx)
}

// seedIDFromHit 优先读元数据，缺失时从文档ID还原
func seedIDFromHit(hit Hit) (int64, bool) {
	if hit.Metadata != nil {
		switch v := hit.Metadata["seedId"].(type) {
		case float64:
			return int64(v), true
		case int64:
			return v, true
		case int:
			return int64(v), true
		}
	}
	return ParseDocID(hit.ID)
}

// Search 语义检索，topK收敛到[1,100]
func (s *SemanticService) Search(ctx context.Context, query string, topK int) ([]models.SemanticHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.ErrInvalidInput("query", "cannot be empty")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Search(ctx, queryVector, topK, nil)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(hits))
	similarity := make(map[int64]float64, len(hits))
	for _, hit := range hits {
		id, ok := seedIDFromHit(hit)
		if !ok {
			continue
		}
		if _, dup := similarity[id]; dup {
			continue
		}
		ids = append(ids, id)
		similarity[id] = hit.Similarity
	}

	seeds, err := s.store.GetSeedsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]models.SemanticHit, 0, len(seeds))
	for _, seed := range seeds {
		results = append(results, models.SemanticHit{
			Seed:       seed,
			Similarity: similarity[seed.ID],
		})
	}
	return results, nil
}

// SearchByQuery 语义召回种子列表，推荐链路按相似度顺序直接消费
func (s *SemanticService) SearchByQuery(ctx context.Context, query string, topK int) ([]models.Seed, error) {
	hits, err := s.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	seeds := make([]models.Seed, 0, len(hits))
	for _, hit := range hits {
		seeds = append(seeds, hit.Seed)
	}
	return seeds, nil
}

// Count 向量库中的文档数
func (s *SemanticService) Count(ctx context.Context) (int32, error) {
	return s.vectors.Count(ctx)
}

// HealthCheck 语义检索链路健康检查
func (s *SemanticService) HealthCheck(ctx context.Context) error {
	return s.vectors.HealthCheck(ctx)
}
