package sync

import (
	"context"
	"sync/atomic"
	"time"

	"seedsearch/internal/config"
	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
	"seedsearch/internal/models"
	"seedsearch/internal/search"
	"seedsearch/internal/store"
	"seedsearch/internal/vector"
)

const defaultChunkSize = 500

// Orchestrator 全量同步调度器
// 同一时刻只允许一次全量重建，倒排索引建成前检索入口处于降级状态
type Orchestrator struct {
	store    *store.Store
	idx      *search.Index
	semantic *vector.SemanticService
	chunk    int
	log      *logger.Logger

	syncing atomic.Bool
	ready   atomic.Bool
}

// NewOrchestrator 创建同步调度器，semantic可为nil
func NewOrchestrator(st *store.Store, idx *search.Index, semantic *vector.SemanticService, cfg config.SyncConfig) *Orchestrator {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &Orchestrator{
		store:    st,
		idx:      idx,
		semantic: semantic,
		chunk:    chunk,
		log:      logger.NewLogger("sync-orchestrator"),
	}
}

// Ready 倒排索引是否可以对外提供检索
func (o *Orchestrator) Ready() bool {
	return o.ready.Load()
}

// Syncing 是否有全量同步在进行
func (o *Orchestrator) Syncing() bool {
	return o.syncing.Load()
}

// MarkReady 跳过启动同步时直接放行检索入口
func (o *Orchestrator) MarkReady() {
	o.ready.Store(true)
}

// RebuildAll 全量重建倒排索引与向量库
// 倒排部分失败即整体失败；向量部分失败只降级语义检索，不阻塞就绪
func (o *Orchestrator) RebuildAll(ctx context.Context) error {
	if !o.syncing.CompareAndSwap(false, true) {
		return errors.ErrInvalidInput("sync", "full rebuild already in progress")
	}
	defer o.syncing.Store(false)

	start := time.Now()
	o.log.Info("开始全量重建索引")

	seedCount, err := o.rebuildSeedIndex(ctx)
	if err != nil {
		return err
	}
	approvalCount, err := o.rebuildApprovalIndex(ctx)
	if err != nil {
		return err
	}
	o.ready.Store(true)

	vectorCount := 0
	if o.semantic != nil {
		vectorCount, err = o.rebuildVectors(ctx)
		if err != nil {
			o.log.WithError(err).Warn("向量库重建失败，语义检索降级")
		}
	}

	o.log.Info("全量重建完成", logger.Fields{
		"seeds":     seedCount,
		"approvals": approvalCount,
		"vectors":   vectorCount,
		"elapsed":   time.Since(start).String(),
	})
	return nil
}

// RebuildVectors 只重建向量库，复用同一个单飞标记
func (o *Orchestrator) RebuildVectors(ctx context.Context) (int, error) {
	if o.semantic == nil {
		return 0, errors.ErrConfigMissing("vectordb")
	}
	if !o.syncing.CompareAndSwap(false, true) {
		return 0, errors.ErrInvalidInput("sync", "full rebuild already in progress")
	}
	defer o.syncing.Store(false)

	return o.rebuildVectors(ctx)
}

// rebuildSeedIndex 分块重建种子倒排索引，返回写入条数
func (o *Orchestrator) rebuildSeedIndex(ctx context.Context) (int, error) {
	if err := o.idx.ResetSeeds(); err != nil {
		return 0, err
	}

	total := 0
	var afterID int64
	for {
		seeds, err := o.store.ListSeedsChunk(ctx, afterID, o.chunk)
		if err != nil {
			return total, err
		}
		if len(seeds) == 0 {
			break
		}

		docs := make([]models.SeedDoc, 0, len(seeds))
		for i := range seeds {
			docs = append(docs, SeedToDoc(&seeds[i]))
		}
		if err := o.idx.IndexSeeds(docs); err != nil {
			return total, err
		}
		total += len(seeds)
		afterID = seeds[len(seeds)-1].ID
	}

	o.log.Info("种子倒排索引重建完成", logger.Fields{"count": total})
	return total, nil
}

// rebuildApprovalIndex 分块重建审定倒排索引
func (o *Orchestrator) rebuildApprovalIndex(ctx context.Context) (int, error) {
	if err := o.idx.ResetApprovals(); err != nil {
		return 0, err
	}

	total := 0
	afterID := ""
	for {
		approvals, err := o.store.ListApprovalsChunk(ctx, afterID, o.chunk)
		if err != nil {
			return total, err
		}
		if len(approvals) == 0 {
			break
		}

		docs := make([]models.ApprovalDoc, 0, len(approvals))
		for i := range approvals {
			docs = append(docs, ApprovalToDoc(&approvals[i]))
		}
		if err := o.idx.IndexApprovals(docs); err != nil {
			return total, err
		}
		total += len(approvals)
		afterID = approvals[len(approvals)-1].ID
	}

	o.log.Info("审定倒排索引重建完成", logger.Fields{"count": total})
	return total, nil
}

// rebuildVectors 分块重建向量库，单条向量化失败跳过
func (o *Orchestrator) rebuildVectors(ctx context.Context) (int, error) {
	if err := o.semantic.Reset(ctx); err != nil {
		return 0, err
	}

	total := 0
	var afterID int64
	for {
		seeds, err := o.store.ListSeedsChunk(ctx, afterID, o.chunk)
		if err != nil {
			return total, err
		}
		if len(seeds) == 0 {
			break
		}

		n, err := o.semantic.IndexSeeds(ctx, seeds)
		if err != nil {
			return total, err
		}
		total += n
		afterID = seeds[len(seeds)-1].ID
	}

	o.log.Info("向量库重建完成", logger.Fields{"count": total})
	return total, nil
}
