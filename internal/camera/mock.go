package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// MockSource はテスト用のFrameSource実装
// 設定されたフレーム列を順に返し、使い切った後の動作を制御できる
type MockSource struct {
	device string

	// テスト制御用
	shouldFailOpen bool
	failAfterDrain bool // フレームを使い切ったらデバイス異常を返す
	frames         []image.Image

	idx    int
	opened bool
	closed bool
	mu     sync.Mutex
}

// NewMockSource は新しいMockSourceを作成する
func NewMockSource(device string) *MockSource {
	return &MockSource{device: device}
}

// SetShouldFailOpen はテスト用にOpen失敗を設定する
func (m *MockSource) SetShouldFailOpen(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOpen = shouldFail
}

// SetFailAfterDrain はフレームを使い切った後にデバイス異常を発生させる
func (m *MockSource) SetFailAfterDrain(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfterDrain = fail
}

// SetFrames は返却するフレーム列を設定する
func (m *MockSource) SetFrames(frames []image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.idx = 0
}

// Open はモックデバイスを開く
func (m *MockSource) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOpen {
		return fmt.Errorf("モック: デバイス %s を開けません", m.device)
	}
	m.opened = true
	return nil
}

// ReadFrame は設定されたフレームを順に返す
// 使い切った後はfailAfterDrainに応じてエラーか(nil, nil)を返す
func (m *MockSource) ReadFrame(_ context.Context) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return nil, fmt.Errorf("モック: デバイス %s は開かれていません", m.device)
	}
	if m.idx < len(m.frames) {
		frame := m.frames[m.idx]
		m.idx++
		return frame, nil
	}
	if m.failAfterDrain {
		return nil, fmt.Errorf("モック: デバイス %s の読み取りに失敗", m.device)
	}
	return nil, nil
}

// Close はモックデバイスを解放する
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	m.closed = true
	return nil
}

// Closed はCloseが呼ばれたかどうかを返す
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// TestImage はテスト用の単色画像を生成する
func TestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[(y*width+x)*4+3] = 0xFF
		}
	}
	return img
}
