package main

import (
	"context"
	"log"
	"os"

	"hakobiya/internal/camera"
	"hakobiya/internal/config"
	"hakobiya/internal/executor"
	"hakobiya/internal/server"
	"hakobiya/internal/task"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
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
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
		os.Exit(1)
	}
}
