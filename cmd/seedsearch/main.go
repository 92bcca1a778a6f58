package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"seedsearch/internal/config"
	"seedsearch/internal/handlers"
	"seedsearch/internal/history"
	"seedsearch/internal/logger"
	"seedsearch/internal/recommend"
	"seedsearch/internal/search"
	"seedsearch/internal/store"
	syncpkg "seedsearch/internal/sync"
	"seedsearch/internal/vector"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	mainLogger, err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, "seedsearch")
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		mainLogger.Fatal("初始化数据库失败", logger.Fields{"error": err.Error()})
	}

	idx, err := search.NewIndex(&cfg.Lexical)
	if err != nil {
		mainLogger.Fatal("初始化倒排索引失败", logger.Fields{"error": err.Error()})
	}
	defer idx.Close()

	// 向量检索按配置启用，初始化失败只降级语义入口
	var semantic *vector.SemanticService
	if chromaStore, err := vector.NewChromaStore(cfg.VectorDB); err != nil {
		mainLogger.Warn("向量库连接失败，语义检索不可用", logger.Fields{"error": err.Error()})
	} else {
		semantic = vector.NewSemanticService(st, chromaStore, vector.NewEmbedder(cfg.Embedding))
	}

	searcher := search.NewService(idx, st)
	hist := history.NewService(st)
	// 接口不能装入带类型的nil指针，降级时保持接口本身为nil
	var semanticRecall recommend.SemanticSearcher
	if semantic != nil {
		semanticRecall = semantic
	}
	engine := recommend.NewEngine(st, searcher, semanticRecall)
	indexer := syncpkg.NewIndexer(idx, semantic)
	orchestrator := syncpkg.NewOrchestrator(st, idx, semantic, cfg.Sync)

	if cfg.Sync.SyncOnStartup {
		go func() {
			if err := orchestrator.RebuildAll(context.Background()); err != nil {
				mainLogger.Error("启动全量同步失败", logger.Fields{"error": err.Error()})
			}
		}()
	} else {
		orchestrator.MarkReady()
	}

	router := handlers.NewRouter(handlers.Deps{
		Store:        st,
		Searcher:     searcher,
		Semantic:     semantic,
		History:      hist,
		Recommender:  engine,
		Indexer:      indexer,
		Orchestrator: orchestrator,
	})

	srv := &http.Server{
		Addr:         config.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		mainLogger.Info("服务启动", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.Fatal("服务启动失败", logger.Fields{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	mainLogger.Info("收到退出信号，开始优雅关闭")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		mainLogger.Error("关闭服务失败", logger.Fields{"error": err.Error()})
	}
	mainLogger.Info("服务已退出")
}
