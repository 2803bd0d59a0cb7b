package config

import (
	"os"
	"testing"
	"time"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg == nil {
		t.Fatal("設定がnilです")
	}

	// サーバー設定の検証
	if cfg.Server.Host == "" {
		t.Error("サーバーホストが設定されていません")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Errorf("無効なポート番号: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	// WriteTimeout は 0（無効）でも正常
	if cfg.Server.WriteTimeout < 0 {
		t.Error("書き込みタイムアウトが負の値です")
	}

	// ワークスペース設定の検証
	if cfg.Workspace.RootDir == "" {
		t.Error("ワークスペースのルートディレクトリが設定されていません")
	}
	if cfg.Workspace.ComposeFile == "" {
		t.Error("composeマニフェストのパスが設定されていません")
	}

	// ストリーミング設定の検証
	if cfg.Stream.BufferSize <= 0 {
		t.Error("フレームバッファ容量が設定されていません")
	}
	if cfg.Stream.BufferPolicy != PolicyDrop {
		t.Errorf("デフォルトのバッファポリシーがdropではありません: %s", cfg.Stream.BufferPolicy)
	}
	if cfg.Stream.ReadBackoff != 200*time.Millisecond {
		t.Errorf("フレーム取得の待機時間が一致しません: %v", cfg.Stream.ReadBackoff)
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		config    *Config
		expectErr bool
	}{
		{
			name: "正常な設定",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 8080,
				},
				Workspace: WorkspaceConfig{
					RootDir: "/app/workspace",
				},
				Stream: StreamConfig{
					BufferSize:   30,
					BufferPolicy: PolicyDrop,
				},
			},
			expectErr: false,
		},
		{
			name: "無効なポート番号",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 99999, // 無効なポート
				},
				Workspace: WorkspaceConfig{
					RootDir: "/app/workspace",
				},
				Stream: StreamConfig{
					BufferSize:   30,
					BufferPolicy: PolicyDrop,
				},
			},
			expectErr: true,
		},
		{
			name: "ワークスペース未設定",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 8080,
				},
				Workspace: WorkspaceConfig{
					RootDir: "",
				},
				Stream: StreamConfig{
					BufferSize:   30,
					BufferPolicy: PolicyDrop,
				},
			},
			expectErr: true,
		},
		{
			name: "無効なバッファ容量",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 8080,
				},
				Workspace: WorkspaceConfig{
					RootDir: "/app/workspace",
				},
				Stream: StreamConfig{
					BufferSize:   0, // 無効な容量
					BufferPolicy: PolicyDrop,
				},
			},
			expectErr: true,
		},
		{
			name: "無効なバッファポリシー",
			config: &Config{
				Server: ServerConfig{
					Host: "localhost",
					Port: 8080,
				},
				Workspace: WorkspaceConfig{
					RootDir: "/app/workspace",
				},
				Stream: StreamConfig{
					BufferSize:   30,
					BufferPolicy: BufferPolicy("latest"), // 未定義のポリシー
				},
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	actual := cfg.ServerAddress()

	if actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
// 注意: このテストは環境変数を変更するため、parallelは使わない
func TestEnvironmentVariables(t *testing.T) {
	originalHost := os.Getenv("SERVER_HOST")
	originalPort := os.Getenv("SERVER_PORT")
	originalPolicy := os.Getenv("FRAME_BUFFER_POLICY")

	defer func() {
		// テスト後に環境変数を復元
		_ = os.Setenv("SERVER_HOST", originalHost)
		_ = os.Setenv("SERVER_PORT", originalPort)
		_ = os.Setenv("FRAME_BUFFER_POLICY", originalPolicy)
	}()

	_ = os.Setenv("SERVER_HOST", "test.example.com")
	_ = os.Setenv("SERVER_PORT", "9999")
	_ = os.Setenv("FRAME_BUFFER_POLICY", "overwrite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("環境変数のホストが反映されていません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if cfg.Stream.BufferPolicy != PolicyOverwrite {
		t.Errorf("環境変数のバッファポリシーが反映されていません: got %s", cfg.Stream.BufferPolicy)
	}
}
