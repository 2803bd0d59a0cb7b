package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"hakobiya/internal/camera"
	"hakobiya/internal/task"
)

// CameraActionRequest はカメラ操作エンドポイントのリクエスト
type CameraActionRequest struct {
	Devices []string `json:"devices"` // 対象デバイス（stop/statusでは空=全デバイス）
	Width   int      `json:"width"`   // リサイズ後の幅（0は無変換）
	Height  int      `json:"height"`  // リサイズ後の高さ（0は無変換）
}

// CameraConfigGetRequest はカメラコントロール取得のリクエスト
type CameraConfigGetRequest struct {
	Configs map[string][]string `json:"configs" binding:"required"`
}

// CameraConfigSetRequest はカメラコントロール設定のリクエスト
type CameraConfigSetRequest struct {
	Configs map[string]map[string]string `json:"configs" binding:"required"`
}

// CancelRequest はタスクキャンセルのリクエスト
type CancelRequest struct {
	Task string `json:"task" binding:"required"`
}

// LogsRequest はログ取得のリクエスト
type LogsRequest struct {
	Tasks []string `json:"tasks" binding:"required,min=1"`
}

// handleCameraAction はカメラのstart/stop/statusを処理する
func (s *Server) handleCameraAction(c *gin.Context) {
	var req CameraActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}

	switch c.Param("action") {
	case "start":
		if len(req.Devices) == 0 {
			c.JSON(http.StatusBadRequest, errorResponse("開始するデバイスが指定されていません"))
			return
		}
		s.registry.Start(req.Devices, req.Width, req.Height)
		c.JSON(http.StatusOK, okResponse(s.registry.Status(req.Devices)))

	case "stop":
		s.registry.Stop(req.Devices)
		c.JSON(http.StatusOK, okResponse(s.registry.Status(req.Devices)))

	case "status":
		c.JSON(http.StatusOK, okResponse(s.registry.Status(req.Devices)))

	default:
		c.JSON(http.StatusBadRequest, errorResponse(
			fmt.Sprintf("不正なカメラ操作です: %s", c.Param("action"))))
	}
}

// handleCameraStream はMJPEGストリームを配信する
func (s *Server) handleCameraStream(c *gin.Context) {
	streamID := c.Param("stream_id")

	frames, err := s.registry.Feed(c.Request.Context(), streamID)
	if err != nil {
		if errors.Is(err, camera.ErrStreamNotFound) {
			c.JSON(http.StatusNotFound, errorResponse(
				fmt.Sprintf("指定されたストリームが見つかりません: %s", streamID)))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
		return
	}

	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	clientGone := c.Request.Context().Done()

	// ストリーミングループ
	for {
		select {
		case <-clientGone:
			// クライアントが切断された
			return

		case frame, ok := <-frames:
			if !ok {
				// ストリームが停止された
				return
			}

			if _, err := writer.Write([]byte("--frame\r\n")); err != nil {
				return
			}
			if _, err := writer.Write([]byte("Content-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}
			if _, err := writer.Write(frame); err != nil {
				return
			}
			if _, err := writer.Write([]byte("\r\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleCameraDevices は利用可能なカメラデバイス一覧を返す
func (s *Server) handleCameraDevices(c *gin.Context) {
	devices, err := s.discovery.ScanDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, errorResponse(fmt.Sprintf("デバイスのスキャンに失敗: %v", err)))
		return
	}
	c.JSON(http.StatusOK, okResponse(gin.H{"devices": devices}))
}

// handleCameraConfigGet はカメラコントロールの取得を処理する
func (s *Server) handleCameraConfigGet(c *gin.Context) {
	var req CameraConfigGetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}

	ok, detail, data := s.controller.GetConfig(c.Request.Context(), req.Configs)
	c.JSON(http.StatusOK, newResponse(data, ok, detail, ""))
}

// handleCameraConfigSet はカメラコントロールの設定を処理する
func (s *Server) handleCameraConfigSet(c *gin.Context) {
	var req CameraConfigSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}

	ok, detail := s.controller.SetConfig(c.Request.Context(), req.Configs)
	c.JSON(http.StatusOK, newResponse(nil, ok, detail, ""))
}

// handleBuild はビルドタスクの開始を処理する
func (s *Server) handleBuild(c *gin.Context) {
	var params task.BuildParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}
	s.startTask(c, func() error { return s.runner.StartBuild(params) })
}

// handleProvision はプロビジョニングタスクの開始を処理する
func (s *Server) handleProvision(c *gin.Context) {
	var params task.ProvisionParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}
	s.startTask(c, func() error { return s.runner.StartProvision(params) })
}

// handleDeploy はデプロイタスクの開始を処理する
func (s *Server) handleDeploy(c *gin.Context) {
	var params task.DeployParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}
	s.startTask(c, func() error { return s.runner.StartDeploy(params) })
}

// startTask はタスクの開始結果をレスポンスに変換する
// 実行中の場合はキューイングせず、その場で拒否を返す
func (s *Server) startTask(c *gin.Context, start func() error) {
	switch err := start(); {
	case err == nil:
		c.JSON(http.StatusOK, okResponse(nil))
	case errors.Is(err, task.ErrBusy):
		c.JSON(http.StatusOK, errorResponse(err.Error()))
	case errors.Is(err, task.ErrInvalidParams):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
	}
}

// handleTaskStatus は現在のタスク進捗を返す
func (s *Server) handleTaskStatus(c *gin.Context) {
	c.JSON(http.StatusOK, okResponse(s.manager.Progress()))
}

// handleCancel はタスクのキャンセル要求を処理する
func (s *Server) handleCancel(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}

	kind := task.Kind(req.Task)
	switch kind {
	case task.KindBuild, task.KindProvision, task.KindDeploy:
		s.manager.Cancel(kind)
		c.JSON(http.StatusOK, okResponse(nil))
	default:
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("不正なタスク種別です: %s", req.Task)))
	}
}

// handleLogs は指定されたタスクのログを返す
func (s *Server) handleLogs(c *gin.Context) {
	var req LogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("リクエストの解析に失敗: %v", err)))
		return
	}

	logs, err := s.runner.Logs(req.Tasks)
	if err != nil {
		c.JSON(http.StatusOK, errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, okResponse(logs))
}
