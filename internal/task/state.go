package task

import "sync"

// State はプロセス全体で単一の進捗状態
// 1つのミューテックスで保護され、すべての変更は1回の代入で完結する。
// ブロッキング処理をまたいでロックを保持することはない
type State struct {
	mu       sync.Mutex
	task     Kind
	progress int
	status   Status
	started  bool // 一度でもタスクが開始されたか
}

// NewState は新しいStateを作成する
func NewState() *State {
	return &State{}
}

// IsBusy はタスクが実行中かどうかを返す
func (s *State) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && s.status == StatusInProgress
}

// Set は実行中タスクの進捗を更新する
// ステータスはIn Progressになる
func (s *State) Set(task Kind, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = task
	s.progress = progress
	s.status = StatusInProgress
	s.started = true
}

// Complete はタスクを成功として完了させる（進捗100%）
func (s *State) Complete(task Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = task
	s.progress = 100
	s.status = StatusSuccess
}

// Fail はタスクを失敗として終了させる
// 進捗は最後の値のまま凍結される
func (s *State) Fail(task Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = task
	s.status = StatusFailed
}

// Snapshot は現在の進捗状態のコピーを返す
// タスクが一度も開始されていない場合は空のスナップショットを返す
func (s *State) Snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return Progress{}
	}
	return Progress{
		Task:     s.task,
		Progress: s.progress,
		Status:   s.status,
	}
}
