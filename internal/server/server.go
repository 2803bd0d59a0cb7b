package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"hakobiya/internal/camera"
	"hakobiya/internal/config"
	"hakobiya/internal/task"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server

	registry   *camera.Registry
	controller *camera.Controller
	discovery  camera.Discovery
	manager    *task.Manager
	runner     *task.Runner
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, registry *camera.Registry, controller *camera.Controller,
	discovery camera.Discovery, manager *task.Manager, runner *task.Runner) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:     cfg,
		engine:     engine,
		registry:   registry,
		controller: controller,
		discovery:  discovery,
		manager:    manager,
		runner:     runner,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()
	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	{
		// カメラ関連
		api.POST("/camera/:action", s.handleCameraAction)
		api.GET("/camera/stream/:stream_id", s.handleCameraStream)
		api.GET("/camera/devices", s.handleCameraDevices)
		api.POST("/camera/config/get", s.handleCameraConfigGet)
		api.POST("/camera/config/set", s.handleCameraConfigSet)

		// タスク関連
		api.POST("/build", s.handleBuild)
		api.POST("/provision", s.handleProvision)
		api.POST("/deploy", s.handleDeploy)
		api.GET("/status", s.handleTaskStatus)
		api.POST("/cancel", s.handleCancel)
		api.POST("/logs", s.handleLogs)
	}
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Start はサーバーを起動する
// シグナルまたはコンテキストのキャンセルでグレースフルに停止する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 稼働中のカメラワーカーもすべて停止する
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	// 全カメラワーカーを停止してjoinする
	s.registry.Stop(nil)

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}

// Engine はルーティング設定済みのginエンジンを返す（テスト用）
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
