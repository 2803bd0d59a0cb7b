package task

import (
	"fmt"

	"hakobiya/internal/config"
	"hakobiya/internal/executor"
)

// Runner はビルド・プロビジョニング・デプロイの各ワーカーを提供する
// 外部コマンドの発行はすべてExecutor経由で行う
type Runner struct {
	manager   *Manager
	exec      executor.Executor
	workspace config.WorkspaceConfig
}

// NewRunner は新しいRunnerを作成する
func NewRunner(manager *Manager, exec executor.Executor, workspace config.WorkspaceConfig) *Runner {
	return &Runner{
		manager:   manager,
		exec:      exec,
		workspace: workspace,
	}
}

// StartBuild はビルドタスクを開始する
// 別タスク実行中はErrBusy、パラメータ不正はErrInvalidParamsを返す
func (r *Runner) StartBuild(params BuildParams) error {
	if len(params.Services) == 0 {
		return fmt.Errorf("%w: ビルド対象のサービスが指定されていません", ErrInvalidParams)
	}
	return r.manager.Run(KindBuild, func(alive func() bool) {
		r.buildWorker(params, alive)
	})
}

// StartProvision はプロビジョニングタスクを開始する
func (r *Runner) StartProvision(params ProvisionParams) error {
	return r.manager.Run(KindProvision, func(alive func() bool) {
		r.provisionWorker(params, alive)
	})
}

// StartDeploy はデプロイタスクを開始する
func (r *Runner) StartDeploy(params DeployParams) error {
	if len(params.Images) == 0 {
		return fmt.Errorf("%w: デプロイ対象のイメージが指定されていません", ErrInvalidParams)
	}
	return r.manager.Run(KindDeploy, func(alive func() bool) {
		r.deployWorker(params, alive)
	})
}
