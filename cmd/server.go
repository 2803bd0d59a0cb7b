// Package main はHakobiyaサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"hakobiya/internal/camera"
	"hakobiya/internal/config"
	"hakobiya/internal/executor"
	"hakobiya/internal/server"
	"hakobiya/internal/task"
)

func main() {
	// コマンドラインオプション
	var (
		host      = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port      = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		workspace = flag.String("workspace", "", "ワークスペースのルートディレクトリ")
		help      = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Hakobiya")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// ワークスペースは設定読み込み前に環境変数へ反映する
	if *workspace != "" {
		if err := os.Setenv("WORKSPACE_DIR", *workspace); err != nil {
			log.Fatalf("ワークスペースの設定に失敗しました: %v", err)
		}
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// 依存を組み立てる
	exec := executor.NewShellExecutor()
	registry := camera.NewRegistry(cfg.Stream, func(device string) camera.FrameSource {
		return camera.NewFFmpegSource(device)
	})
	manager := task.NewManager(task.NewState())
	runner := task.NewRunner(manager, exec, cfg.Workspace)

	// サーバーを作成
	srv := server.New(cfg, registry, camera.NewController(exec),
		camera.NewLinuxDiscovery(), manager, runner)

	// サーバーを起動
	log.Printf("Hakobiya サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
