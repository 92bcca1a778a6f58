package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Lexical   LexicalConfig   `mapstructure:"lexical"`
	VectorDB  VectorDBConfig  `mapstructure:"vector_db"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Path            string        `mapstructure:"path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LexicalConfig 倒排索引配置
type LexicalConfig struct {
	Path      string        `mapstructure:"path"`       // 索引文件目录，空为内存索引
	Timeout   time.Duration `mapstructure:"timeout"`    // 单次查询超时
	DictExtra string        `mapstructure:"dict_extra"` // 额外分词词典（可选）
}

// VectorDBConfig 向量数据库配置
type VectorDBConfig struct {
	Type       string        `mapstructure:"type"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryTimes int           `mapstructure:"retry_times"`
	BatchSize  int           `mapstructure:"batch_size"`
}

// EmbeddingConfig embedding API配置
type EmbeddingConfig struct {
	APIBase    string        `mapstructure:"api_base"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryTimes int           `mapstructure:"retry_times"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// SyncConfig 数据同步配置
type SyncConfig struct {
	ChunkSize     int  `mapstructure:"chunk_size"`      // 全量同步批大小
	SyncOnStartup bool `mapstructure:"sync_on_startup"` // 启动时全量同步
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

var (
	globalConfig *Config
	configLogger *logger.Logger
)

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	configLogger = logger.NewLogger("config")

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 设置环境变量前缀
	viper.SetEnvPrefix("SEEDSEARCH")
	viper.AutomaticEnv()

	// 绑定特定的环境变量
	viper.BindEnv("embedding.api_key", "SEEDSEARCH_EMBEDDING_API_KEY")
	viper.BindEnv("database.path", "SEEDSEARCH_DATABASE_PATH")
	viper.BindEnv("vector_db.host", "SEEDSEARCH_VECTOR_DB_HOST")

	configLogger.Info("Loading configuration", logger.Fields{
		"config_path": configPath,
	})

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		appErr := errors.ErrConfigInvalid("config_file", err.Error()).
			WithCause(err).
			WithContext(map[string]interface{}{
				"config_path": configPath,
			})
		configLogger.LogAppError(appErr, "Failed to read configuration file")
		return nil, appErr
	}

	// 解析配置到结构体
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		appErr := errors.ErrConfigInvalid("config_unmarshal", err.Error()).
			WithCause(err)
		configLogger.LogAppError(appErr, "Failed to unmarshal configuration")
		return nil, appErr
	}

	applyDefaults(config)

	// 验证配置
	if err := validateConfig(config); err != nil {
		configLogger.LogAppError(err.(*errors.AppError), "Configuration validation failed")
		return nil, err
	}

	// 处理环境变量覆盖
	processEnvironmentOverrides(config)

	globalConfig = config
	configLogger.Info("Configuration loaded successfully", logger.Fields{
		"server_port":     config.Server.Port,
		"database_type":   config.Database.Type,
		"vector_db_type":  config.VectorDB.Type,
		"embedding_model": config.Embedding.Model,
	})

	return config, nil
}

// applyDefaults 填充缺省值
func applyDefaults(config *Config) {
	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 5 * time.Second
	}
	if config.Lexical.Timeout <= 0 {
		config.Lexical.Timeout = 5 * time.Second
	}
	if config.VectorDB.Timeout <= 0 {
		config.VectorDB.Timeout = 10 * time.Second
	}
	if config.VectorDB.BatchSize <= 0 {
		config.VectorDB.BatchSize = 100
	}
	if config.Embedding.Timeout <= 0 {
		config.Embedding.Timeout = 10 * time.Second
	}
	if config.Sync.ChunkSize <= 0 {
		config.Sync.ChunkSize = 500
	}
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	// 验证服务器配置
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return errors.ErrConfigInvalid("server.port", "must be between 1 and 65535")
	}

	if config.Server.Mode != "development" && config.Server.Mode != "production" {
		return errors.ErrConfigInvalid("server.mode", "must be 'development' or 'production'")
	}

	// 验证数据库配置
	if config.Database.Type != "sqlite" {
		return errors.ErrConfigInvalid("database.type", "only 'sqlite' is supported")
	}

	if config.Database.Path == "" {
		return errors.ErrConfigMissing("database.path")
	}

	// 验证向量数据库配置
	if config.VectorDB.Type != "chroma" {
		return errors.ErrConfigInvalid("vector_db.type", "only 'chroma' is supported")
	}

	if config.VectorDB.Collection == "" {
		return errors.ErrConfigMissing("vector_db.collection")
	}

	// 验证embedding配置
	if config.Embedding.APIBase == "" {
		return errors.ErrConfigMissing("embedding.api_base")
	}

	if config.Embedding.Model == "" {
		return errors.ErrConfigMissing("embedding.model")
	}

	// 验证日志配置
	if config.Logging.Level == "" {
		return errors.ErrConfigMissing("logging.level")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLogLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return errors.ErrConfigInvalid("logging.level", "must be one of: debug, info, warn, error")
	}

	return nil
}

// processEnvironmentOverrides 处理环境变量覆盖
func processEnvironmentOverrides(config *Config) {
	if apiKey := os.Getenv("SEEDSEARCH_EMBEDDING_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
		configLogger.Debug("Embedding API key loaded from environment variable")
	}

	if dbPath := os.Getenv("SEEDSEARCH_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
		configLogger.Debug("Database path loaded from environment variable")
	}

	if config.Embedding.APIKey == "" {
		configLogger.Warn("Embedding API key is empty - semantic search may not work")
	}
}

// Initialize 直接注入配置（测试和演示用）
func Initialize(config *Config) error {
	if config == nil {
		return errors.ErrConfigMissing("config")
	}
	applyDefaults(config)
	globalConfig = config
	return nil
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// GetDatabaseConfig 获取数据库配置
func GetDatabaseConfig() DatabaseConfig {
	if globalConfig == nil {
		return DatabaseConfig{}
	}
	return globalConfig.Database
}

// GetEmbeddingConfig 获取embedding配置
func GetEmbeddingConfig() EmbeddingConfig {
	if globalConfig == nil {
		return EmbeddingConfig{}
	}
	return globalConfig.Embedding
}

// IsProduction 检查是否为生产环境
func IsProduction() bool {
	if globalConfig == nil {
		return false
	}
	return globalConfig.Server.Mode == "production"
}

// GetServerAddress 获取服务器地址
func GetServerAddress() string {
	if globalConfig == nil {
		return ":8080"
	}
	return fmt.Sprintf("%s:%d", globalConfig.Server.Host, globalConfig.Server.Port)
}
