package camera

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hakobiya/internal/config"
)

// streamHandle は稼働中デバイス1台分のエントリ
// レジストリのマップに存在する間、ワーカーゴルーチンを排他的に所有する
type streamHandle struct {
	deviceID string
	streamID string
	alive    bool // ワーカーへの協調的停止シグナル（レジストリのロックで保護）
	buffer   *FrameBuffer
	done     chan struct{} // ワーカー終了時にクローズされる（joinに使用）
}

// Registry はデバイスIDからキャプチャワーカーへのレジストリ
// エントリがマップに存在することと、そのワーカーが稼働中
// （または未回収）であることは常に一致する
type Registry struct {
	mu      sync.Mutex
	handles map[string]*streamHandle

	newSource   SourceFactory
	bufferSize  int
	policy      config.BufferPolicy
	readBackoff time.Duration
	reapDelay   time.Duration
}

// NewRegistry は新しいRegistryを作成する
func NewRegistry(cfg config.StreamConfig, factory SourceFactory) *Registry {
	return &Registry{
		handles:     make(map[string]*streamHandle),
		newSource:   factory,
		bufferSize:  cfg.BufferSize,
		policy:      cfg.BufferPolicy,
		readBackoff: cfg.ReadBackoff,
		reapDelay:   time.Second,
	}
}

// Start は指定されたデバイスのキャプチャを開始する
// 既に稼働中のデバイスは何もしない（エラーにはしない）。
// デバイスごとに独立して処理するため、一部の失敗が他に波及することはない
func (r *Registry) Start(devices []string, width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, device := range devices {
		if _, exists := r.handles[device]; exists {
			log.Printf("警告: カメラデバイス %s は既に稼働中です", device)
			continue
		}

		h := &streamHandle{
			deviceID: device,
			streamID: uuid.New().String(),
			alive:    true,
			buffer:   NewFrameBuffer(r.bufferSize, r.policy),
			done:     make(chan struct{}),
		}
		r.handles[device] = h

		go r.streamWorker(h, width, height)
	}
}

// Stop は指定されたデバイスのキャプチャを停止する
// 空のリストは「全デバイス」を意味する。
// aliveフラグの消灯だけをロック内で行い、ロックを解放してから
// ワーカーのjoinとエントリ削除を行う。ワーカーがaliveの確認に
// レジストリのロックを必要とするため、この順序でないとデッドロックする
func (r *Registry) Stop(devices []string) {
	r.mu.Lock()
	if len(devices) == 0 {
		devices = make([]string, 0, len(r.handles))
		for device := range r.handles {
			devices = append(devices, device)
		}
	}

	// 停止シグナルを送り、対象ハンドルを控えておく
	targets := make(map[string]*streamHandle, len(devices))
	for _, device := range devices {
		h, exists := r.handles[device]
		if !exists {
			log.Printf("警告: カメラデバイス %s は稼働していません", device)
			continue
		}
		h.alive = false
		targets[device] = h
	}
	r.mu.Unlock()

	// ロックの外でワーカーの終了を待ち、終了後にエントリを削除する
	for device, h := range targets {
		<-h.done

		r.mu.Lock()
		if cur, exists := r.handles[device]; exists && cur == h {
			delete(r.handles, device)
		}
		r.mu.Unlock()

		h.buffer.Close()
	}
}

// Status は指定されたデバイスの稼働状態を返す
// 空のリストは「登録済みの全デバイス」を意味する。
// 未登録のデバイスはrunning=falseとして報告される
func (r *Registry) Status(devices []string) map[string]DeviceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := make(map[string]DeviceStatus)
	if len(devices) == 0 {
		for device, h := range r.handles {
			status[device] = DeviceStatus{Running: true, StreamID: h.streamID}
		}
		return status
	}

	for _, device := range devices {
		if h, exists := r.handles[device]; exists {
			status[device] = DeviceStatus{Running: true, StreamID: h.streamID}
		} else {
			status[device] = DeviceStatus{Running: false}
		}
	}
	return status
}

// Resolve はストリームIDからデバイスIDを解決する
// エントリ数は少ないため線形走査で十分
func (r *Registry) Resolve(streamID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for device, h := range r.handles {
		if h.streamID == streamID {
			return device, true
		}
	}
	return "", false
}

// Feed は指定されたストリームIDのフレームフィードを返す
// ワーカーの停止・エントリ削除・コンテキストのキャンセルで
// チャンネルはクローズされる。消費者の切断が生産者や他の消費者に
// 影響することはない
func (r *Registry) Feed(ctx context.Context, streamID string) (<-chan []byte, error) {
	r.mu.Lock()
	var handle *streamHandle
	for _, h := range r.handles {
		if h.streamID == streamID {
			handle = h
			break
		}
	}
	r.mu.Unlock()

	if handle == nil {
		return nil, ErrStreamNotFound
	}

	frames := make(chan []byte)
	go func() {
		defer close(frames)
		for {
			batch := handle.buffer.Wait()
			if batch == nil {
				// バッファがクローズされた（停止または異常終了）
				return
			}
			for _, frame := range batch {
				select {
				case frames <- frame:
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return frames, nil
}

// isAlive は指定されたデバイスのワーカーが継続すべきかを返す
// エントリが既に存在しない場合もfalseを返す
func (r *Registry) isAlive(device string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.handles[device]
	if !exists {
		return false
	}
	return h.alive
}

// setReapDelay は異常終了時の回収待ち時間を変更する（テスト用）
func (r *Registry) setReapDelay(d time.Duration) {
	r.reapDelay = d
}
