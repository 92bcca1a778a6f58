// Package vector 基于Chroma实现种子品种的语义向量检索
package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	chroma "github.com/amikos-tech/chroma-go"
	"github.com/amikos-tech/chroma-go/types"

	"seedsearch/internal/config"
	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
)

// docIDPrefix 向量文档ID前缀，与种子主键拼接
const docIDPrefix = "seed:"

// DocID 种子在向量库中的文档ID
func DocID(seedID int64) string {
	return docIDPrefix + strconv.FormatInt(seedID, 10)
}

// ParseDocID 从向量文档ID还原种子主键
func ParseDocID(docID string) (int64, bool) {
	raw, ok := strings.CutPrefix(docID, docIDPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Document 向量文档
type Document struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Hit 向量检索命中，相似度由L2距离换算并收敛到[0,1]
type Hit struct {
	ID         string
	Metadata   map[string]interface{}
	Similarity float64
}

// ChromaStore Chroma向量数据库客户端
type ChromaStore struct {
	client     *chroma.Client
	collection *chroma.Collection
	config     config.VectorDBConfig
	log        *logger.Logger
}

// NewChromaStore 创建Chroma客户端并初始化集合
func NewChromaStore(cfg config.VectorDBConfig) (*ChromaStore, error) {
	log := logger.NewLogger("chroma-store")

	serverURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	client, err := chroma.NewClient(serverURL)
	if err != nil {
		return nil, errors.ErrVectorStorage("创建Chroma客户端失败", err).
			WithContext(map[string]interface{}{"server_url": serverURL})
	}

	cs := &ChromaStore{
		client: client,
		config: cfg,
		log:    log,
	}
	if err := cs.initializeCollection(); err != nil {
		return nil, err
	}

	log.Info("Chroma客户端就绪", logger.Fields{
		"server_url": serverURL,
		"collection": cfg.Collection,
		"batch_size": cfg.BatchSize,
	})
	return cs, nil
}

// initializeCollection 获取集合，不存在时创建，距离度量为L2
func (cs *ChromaStore) initializeCollection() error {
	ctx, cancel := context.WithTimeout(context.Background(), cs.config.Timeout)
	defer cancel()

	collection, err := cs.client.GetCollection(ctx, cs.config.Collection, nil)
	if err != nil {
		metadata := map[string]interface{}{
			"description": "seed variety vectors",
			"created_at":  time.Now().Unix(),
		}
		collection, err = cs.client.CreateCollection(ctx, cs.config.Collection, metadata, true, nil, types.L2)
		if err != nil {
			return errors.ErrVectorStorage("创建Chroma集合失败", err).
				WithContext(map[string]interface{}{"collection": cs.config.Collection})
		}
		cs.log.Info("已创建Chroma集合", logger.Fields{"collection": cs.config.Collection})
	}

	cs.collection = collection
	return nil
}

// splitBatches 按批次大小切分文档，size不合法时整体作为一批
func splitBatches(docs []*Document, size int) [][]*Document {
	if size <= 0 || len(docs) <= size {
		return [][]*Document{docs}
	}
	batches := make([][]*Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[start:end])
	}
	return batches
}

// AddDocuments 批量写入向量文档，按配置的批次大小分批提交
func (cs *ChromaStore) AddDocuments(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, batch := range splitBatches(docs, cs.config.BatchSize) {
		if err := cs.addBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (cs *ChromaStore) addBatch(ctx context.Context, docs []*Document) error {
	ids := make([]string, len(docs))
	embeddings := make([]*types.Embedding, len(docs))
	documents := make([]string, len(docs))
	metadatas := make([]map[string]interface{}, len(docs))

	for i, doc := range docs {
		if doc.ID == "" {
			return errors.ErrValidationFailed("document.id", fmt.Sprintf("document at index %d has empty ID", i))
		}
		if len(doc.Embedding) == 0 {
			return errors.ErrValidationFailed("document.embedding", fmt.Sprintf("document at index %d has empty embedding", i))
		}

		embeddingData := make([]interface{}, len(doc.Embedding))
		for j, v := range doc.Embedding {
			embeddingData[j] = v
		}
		embedding, err := types.NewEmbedding(embeddingData)
		if err != nil {
			return errors.ErrVectorStorage("构造向量失败", err).
				WithContext(map[string]interface{}{"document_id": doc.ID})
		}

		ids[i] = doc.ID
		embeddings[i] = embedding
		documents[i] = doc.Content
		metadatas[i] = doc.Metadata
	}

	if _, err := cs.collection.Add(ctx, embeddings, metadatas, documents, ids); err != nil {
		return errors.ErrVectorStorage("批量写入向量文档失败", err).
			WithContext(map[string]interface{}{
				"batch_size": len(docs),
				"collection": cs.config.Collection,
			})
	}

	cs.log.Debug("向量文档批量写入完成", logger.Fields{"batch_size": len(docs)})
	return nil
}

// UpsertDocument 写入或覆盖单条向量文档
// 集合按ID先删后加，避免重复ID写入报错
func (cs *ChromaStore) UpsertDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.ErrValidationFailed("document", "cannot be nil")
	}
	if _, err := cs.collection.Delete(ctx, []string{doc.ID}, nil, nil); err != nil {
		cs.log.Debug("删除旧向量文档失败，继续写入", logger.Fields{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	return cs.AddDocuments(ctx, []*Document{doc})
}

// DeleteDocument 删除单条向量文档
func (cs *ChromaStore) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return errors.ErrValidationFailed("id", "cannot be empty")
	}
	if _, err := cs.collection.Delete(ctx, []string{id}, nil, nil); err != nil {
		return errors.ErrVectorStorage("删除向量文档失败", err).
			WithContext(map[string]interface{}{"document_id": id})
	}
	return nil
}

// Reset 清空集合，全量重建前调用
func (cs *ChromaStore) Reset(ctx context.Context) error {
	if _, err := cs.client.DeleteCollection(ctx, cs.config.Collection); err != nil {
		return errors.ErrVectorStorage("删除Chroma集合失败", err).
			WithContext(map[string]interface{}{"collection": cs.config.Collection})
	}
	return cs.initializeCollection()
}

// Search 向量相似度检索
func (cs *ChromaStore) Search(ctx context.Context, queryVector []float32, topK int, filter map[string]interface{}) ([]Hit, error) {
	if len(queryVector) == 0 {
		return nil, errors.ErrValidationFailed("query_vector", "cannot be empty")
	}
	if topK <= 0 {
		topK = 10
	}

	embeddingData := make([]interface{}, len(queryVector))
	for i, v := range queryVector {
		embeddingData[i] = v
	}
	queryEmbedding, err := types.NewEmbedding(embeddingData)
	if err != nil {
		return nil, errors.ErrVectorStorage("构造查询向量失败", err)
	}

	queryOptions := []types.CollectionQueryOption{
		types.WithQueryEmbedding(queryEmbedding),
		types.WithNResults(int32(topK)),
		types.WithInclude(types.IDocuments, types.IMetadatas, types.IDistances),
	}
	if len(filter) > 0 {
		queryOptions = append(queryOptions, types.WithWhereMap(filter))
	}

	start := time.Now()
	queryResult, err := cs.collection.QueryWithOptions(ctx, queryOptions...)
	if err != nil {
		return nil, errors.ErrVectorStorage("向量检索失败", err).
			WithContext(map[string]interface{}{
				"top_k":      topK,
				"collection": cs.config.Collection,
			})
	}

	hits := make([]Hit, 0, topK)
	if queryResult != nil && len(queryResult.Ids) > 0 {
		for i := range queryResult.Ids[0] {
			distance := 0.0
			if len(queryResult.Distances) > 0 && len(queryResult.Distances[0]) > i {
				distance = float64(queryResult.Distances[0][i])
			}
			similarity := 1.0 - distance
			if similarity < 0 {
				similarity = 0
			}
			if similarity > 1 {
				similarity = 1
			}

			hit := Hit{
				ID:         queryResult.Ids[0][i],
				Similarity: similarity,
			}
			if len(queryResult.Metadatas) > 0 && len(queryResult.Metadatas[0]) > i {
				hit.Metadata = queryResult.Metadatas[0][i]
			}
			hits = append(hits, hit)
		}
	}

	cs.log.Debug("向量检索完成", logger.Fields{
		"query_time": time.Since(start),
		"hits":       len(hits),
	})
	return hits, nil
}

// Count 集合中的文档数
func (cs *ChromaStore) Count(ctx context.Context) (int32, error) {
	count, err := cs.collection.Count(ctx)
	if err != nil {
		return 0, errors.ErrVectorStorage("统计向量文档失败", err)
	}
	return count, nil
}

// HealthCheck 向量库健康检查
func (cs *ChromaStore) HealthCheck(ctx context.Context) error {
	if _, err := cs.Count(ctx); err != nil {
		return err
	}
	return nil
}
