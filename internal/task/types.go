package task

import "errors"

// Kind はタスクの種別を表す
type Kind string

const (
	// KindBuild はサービスのビルドタスク
	KindBuild Kind = "build"
	// KindProvision はプロビジョニングタスク
	KindProvision Kind = "provision"
	// KindDeploy はリモートホストへのデプロイタスク
	KindDeploy Kind = "deploy"
)

// Status はタスクの進行状態を表す
type Status string

const (
	// StatusInProgress はタスク実行中
	StatusInProgress Status = "In Progress"
	// StatusSuccess はタスク成功
	StatusSuccess Status = "Success"
	// StatusFailed はタスク失敗
	StatusFailed Status = "Failed"
)

// ErrBusy は別のタスクが実行中の場合のエラー
// 要求はキューイングされず、即座に拒否される
var ErrBusy = errors.New("別のタスクが実行中です")

// ErrInvalidParams はタスクパラメータが不正な場合のエラー
var ErrInvalidParams = errors.New("タスクパラメータが不正です")

// Progress は進捗状態のスナップショット
type Progress struct {
	Task     Kind   `json:"task,omitempty"`   // 実行中（または直近）のタスク種別
	Progress int    `json:"progress"`         // 進捗率 [0,100]
	Status   Status `json:"status,omitempty"` // 進行状態
}

// BuildParams はビルドタスクのパラメータ
type BuildParams struct {
	Services   []string `json:"services" binding:"required,min=1"` // ビルド対象（"*"は全サービス）
	Sequential bool     `json:"sequential"`                        // サービスを1つずつビルドするか
	NoCache    bool     `json:"no_cache"`                          // --no-cacheを付与するか
}

// ProvisionParams はプロビジョニングタスクのパラメータ
type ProvisionParams struct {
	DevMode bool `json:"dev_mode"` // 開発モードでプロビジョニングするか
}

// DeployParams はデプロイタスクのパラメータ
type DeployParams struct {
	Images   []string `json:"images" binding:"required,min=1"` // 転送するdockerイメージ一覧
	Host     string   `json:"ip_address" binding:"required"`   // リモートホスト
	Username string   `json:"username" binding:"required"`     // リモートユーザー名
	Password string   `json:"password" binding:"required"`     // リモートパスワード
	Path     string   `json:"path" binding:"required"`         // リモートの配置先パス
}
