package camera

import (
	"sync"

	"hakobiya/internal/config"
)

// FrameBuffer はワーカーと消費者の間の有界フレームFIFO
// 条件変数で消費者をブロックさせ、発行のたびに起床させる
type FrameBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	frames   [][]byte
	capacity int
	policy   config.BufferPolicy
	closed   bool
}

// NewFrameBuffer は新しいFrameBufferを作成する
func NewFrameBuffer(capacity int, policy config.BufferPolicy) *FrameBuffer {
	b := &FrameBuffer{
		capacity: capacity,
		policy:   policy,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish はフレームをバッファへ発行し、待機中の消費者を全て起床させる
// 満杯時の動作はポリシーに従う:
//   - drop: 新しいフレームを破棄する（フレームは鮮度が命のため）
//   - overwrite: 最古のフレームを捨てて格納する
//
// 格納された場合はtrueを返す
func (b *FrameBuffer) Publish(frame []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	stored := true
	if len(b.frames) >= b.capacity {
		if b.policy == config.PolicyOverwrite {
			b.frames = b.frames[1:]
			b.frames = append(b.frames, frame)
		} else {
			stored = false
		}
	} else {
		b.frames = append(b.frames, frame)
	}

	// 格納できなかった場合も起床させる（消費者の滞留を防ぐ）
	b.cond.Broadcast()
	return stored
}

// Wait は次のフレームが発行されるまでブロックし、溜まったフレームを
// 全て取り出して返す。バッファがクローズ済みで空の場合はnilを返す
func (b *FrameBuffer) Wait() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.frames) == 0 && !b.closed {
		b.cond.Wait()
	}

	if len(b.frames) == 0 {
		return nil
	}

	frames := b.frames
	b.frames = nil
	return frames
}

// Len は現在のフレーム数を返す
func (b *FrameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Close はバッファをクローズし、待機中の消費者を全て起床させる
// クローズ後のPublishは破棄される
func (b *FrameBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
