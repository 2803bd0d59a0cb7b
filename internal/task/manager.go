package task

import (
	"log"
	"sync"
)

// slot はタスク種別1つ分の実行枠
type slot struct {
	alive bool          // ワーカーへの協調的キャンセルシグナル
	done  chan struct{} // ワーカー終了時にクローズされる
}

// Manager はタスクの排他制御とワーカーの起動を担う
// システム全体で同時に実行できるタスクは1つだけ。
// 実行中に届いた要求はキューイングせず、ErrBusyで即座に拒否する
type Manager struct {
	state *State

	mu    sync.Mutex
	slots map[Kind]*slot
}

// NewManager は新しいManagerを作成する
func NewManager(state *State) *Manager {
	return &Manager{
		state: state,
		slots: make(map[Kind]*slot),
	}
}

// State は共有の進捗状態を返す
func (m *Manager) State() *State {
	return m.state
}

// IsBusy はいずれかのタスクが実行中かどうかを返す
func (m *Manager) IsBusy() bool {
	return m.state.IsBusy()
}

// Progress は現在の進捗状態のスナップショットを返す
func (m *Manager) Progress() Progress {
	return m.state.Snapshot()
}

// Run はタスクのワーカーを起動する
// 実行中のタスクがあればErrBusyを返し、ワーカーは起動しない。
// 起動に成功すると進捗0%のIn Progressを設定して即座に戻る。
// 以降の進捗更新と終了ステータスの設定はワーカー自身の責務となる
func (m *Manager) Run(kind Kind, fn func(alive func() bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.IsBusy() {
		return ErrBusy
	}

	m.state.Set(kind, 0)
	s := &slot{
		alive: true,
		done:  make(chan struct{}),
	}
	m.slots[kind] = s

	log.Printf("タスクを開始します: %s", kind)
	go func() {
		defer close(s.done)
		fn(func() bool { return m.isAlive(kind, s) })

		m.mu.Lock()
		s.alive = false
		m.mu.Unlock()
	}()

	return nil
}

// Cancel は指定された種別のタスクにキャンセルを要求する
// ワーカーはステップの区切りでフラグを確認して早期終了する。
// ステップ途中の強制中断は行わない
func (m *Manager) Cancel(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.slots[kind]
	if !exists || !s.alive {
		log.Printf("警告: タスク %s は実行されていません", kind)
		return
	}
	s.alive = false
	log.Printf("タスクにキャンセルを要求しました: %s", kind)
}

// isAlive は指定されたスロットのワーカーが継続すべきかを返す
func (m *Manager) isAlive(kind Kind, s *slot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.slots[kind]
	if !exists || cur != s {
		return false
	}
	return s.alive
}

// join は指定された種別のワーカーの終了を待つ（テスト用）
func (m *Manager) join(kind Kind) {
	m.mu.Lock()
	s, exists := m.slots[kind]
	m.mu.Unlock()

	if exists {
		<-s.done
	}
}
