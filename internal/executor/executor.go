// Package executor は外部コマンドの実行を担う
//
// ビルド・プロビジョニング・デプロイの各ワーカーが発行するシェル
// コマンドの唯一の実行窓口であり、プロセス失敗をステータスと
// エラー詳細に変換する責務を持つ。
// コマンドの実行時間は制限しない。呼び出し側がcontextで
// 制限しない限り、ハングしたコマンドは完了まで待ち続ける。
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// Executor はコマンド実行のインターフェース
type Executor interface {
	// Run はコマンドを実行し、成否・エラー詳細・出力を返す
	// remote がtrueの場合はリモートホスト上で実行する
	Run(ctx context.Context, command string, remote bool) (bool, string, string)
}

// RemoteTarget はリモート実行先の情報
type RemoteTarget struct {
	Host     string // 接続先IPアドレスまたはホスト名
	Username string // 接続ユーザー名
	Password string // 接続パスワード
}

// ShellExecutor はシェル経由でコマンドを実行する実装
type ShellExecutor struct {
	target *RemoteTarget
	mu     sync.RWMutex
}

// NewShellExecutor は新しいShellExecutorを作成する
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

// SetRemoteTarget はリモート実行先を設定する
func (e *ShellExecutor) SetRemoteTarget(target RemoteTarget) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = &target
}

// Run はコマンドを実行し、成否・エラー詳細・出力を返す
func (e *ShellExecutor) Run(ctx context.Context, command string, remote bool) (bool, string, string) {
	if remote {
		e.mu.RLock()
		target := e.target
		e.mu.RUnlock()

		if target == nil {
			return false, "リモート実行先が設定されていません", ""
		}
		// リモートコマンドはsshでラップしてローカル実行する
		command = fmt.Sprintf(
			`sshpass -p %q ssh -o StrictHostKeyChecking=no %s@%s %q`,
			target.Password, target.Username, target.Host, command)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := fmt.Sprintf("コマンドの実行に失敗: %v (stderr: %s)", err, stderr.String())
		return false, detail, stdout.String()
	}

	return true, "", stdout.String()
}

// MockCall は記録されたコマンド呼び出し
type MockCall struct {
	Command string
	Remote  bool
}

// MockResult はモックが返す実行結果
type MockResult struct {
	OK          bool
	ErrorDetail string
	Output      string
}

// MockExecutor はテスト用のモック実装
// 呼び出しを記録し、設定された結果を順番に返す
type MockExecutor struct {
	calls   []MockCall
	results []MockResult
	mu      sync.Mutex

	// 実行ごとに呼ばれるフック（同期テスト用、省略可）
	OnRun func(call MockCall)
}

// NewMockExecutor は新しいMockExecutorを作成する
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// Enqueue は次の実行に返す結果を追加する
func (m *MockExecutor) Enqueue(result MockResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

// Run は呼び出しを記録し、設定された結果を返す
// 結果が設定されていない場合は成功を返す
func (m *MockExecutor) Run(_ context.Context, command string, remote bool) (bool, string, string) {
	m.mu.Lock()
	call := MockCall{Command: command, Remote: remote}
	m.calls = append(m.calls, call)
	var result MockResult
	if len(m.results) > 0 {
		result = m.results[0]
		m.results = m.results[1:]
	} else {
		result = MockResult{OK: true}
	}
	hook := m.OnRun
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return result.OK, result.ErrorDetail, result.Output
}

// Calls は記録された呼び出しのコピーを返す
func (m *MockExecutor) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}
