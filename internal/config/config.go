package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BufferPolicy はフレームバッファ満杯時の動作を表す
type BufferPolicy string

const (
	// PolicyDrop は満杯時に新しいフレームを破棄する（デフォルト）
	PolicyDrop BufferPolicy = "drop"
	// PolicyOverwrite は満杯時に最古のフレームを上書きする
	PolicyOverwrite BufferPolicy = "overwrite"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    ServerConfig
	Workspace WorkspaceConfig
	Stream    StreamConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string // リッスンするホスト
	Port int    // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration // 読み込みタイムアウト
	WriteTimeout time.Duration // 書き込みタイムアウト
}

// WorkspaceConfig はビルド・デプロイ対象ワークスペースの設定
type WorkspaceConfig struct {
	RootDir         string // ワークスペースのルートディレクトリ
	BuildDir        string // ビルドディレクトリ
	ComposeFile     string // ビルド用composeマニフェストのパス
	EnvFile         string // ビルド設定の.envファイルのパス
	ProvisionScript string // プロビジョニングスクリプトのパス
	BuildLogFile    string // ビルドログの出力先
}

// StreamConfig はカメラストリーミングの設定
type StreamConfig struct {
	BufferSize   int           // フレームバッファの容量
	BufferPolicy BufferPolicy  // バッファ満杯時のポリシー
	ReadBackoff  time.Duration // フレーム取得失敗時の待機時間
}

// Load は設定を読み込む
// 環境変数で上書き可能なデフォルト値を返す
func Load() (*Config, error) {
	rootDir := getEnvOrDefault("WORKSPACE_DIR", "/app/workspace")
	buildDir := filepath.Join(rootDir, "build")

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("SERVER_PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Workspace: WorkspaceConfig{
			RootDir:         rootDir,
			BuildDir:        buildDir,
			ComposeFile:     filepath.Join(buildDir, "docker-compose-build.yml"),
			EnvFile:         filepath.Join(buildDir, ".env"),
			ProvisionScript: filepath.Join(buildDir, "provision", "provision.sh"),
			BuildLogFile:    filepath.Join(buildDir, "build.log"),
		},
		Stream: StreamConfig{
			BufferSize:   getEnvAsIntOrDefault("FRAME_BUFFER_SIZE", 30),
			BufferPolicy: BufferPolicy(getEnvOrDefault("FRAME_BUFFER_POLICY", string(PolicyDrop))),
			ReadBackoff:  200 * time.Millisecond,
		},
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// ワークスペース設定の検証
	if c.Workspace.RootDir == "" {
		return fmt.Errorf("ワークスペースのルートディレクトリが設定されていません")
	}

	// ストリーミング設定の検証
	if c.Stream.BufferSize < 1 {
		return fmt.Errorf("無効なフレームバッファ容量: %d", c.Stream.BufferSize)
	}
	if c.Stream.BufferPolicy != PolicyDrop && c.Stream.BufferPolicy != PolicyOverwrite {
		return fmt.Errorf("無効なバッファポリシー: %s", c.Stream.BufferPolicy)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
