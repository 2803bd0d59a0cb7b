package camera

import (
	"context"
	"errors"
	"image"
)

// ErrStreamNotFound は未知のストリームIDを指定した場合のエラー
var ErrStreamNotFound = errors.New("ストリームが見つかりません")

// DeviceStatus はデバイスの稼働状態を表す
type DeviceStatus struct {
	Running  bool   `json:"running"`             // ワーカーが稼働中かどうか
	StreamID string `json:"stream_id,omitempty"` // フィード取得用のストリームID
}

// FrameSource はカメラデバイスからのフレーム取得を抽象化する
// 実装はブロッキングでよい。ワーカーが1デバイスにつき1つ所有する
type FrameSource interface {
	// Open はデバイスを開く
	Open(ctx context.Context) error

	// ReadFrame は1フレームを取得する
	// フレームが得られない一時的な状態では (nil, nil) を返してよい
	// デバイス異常の場合はエラーを返す
	ReadFrame(ctx context.Context) (image.Image, error)

	// Close はデバイスを解放する
	Close() error
}

// SourceFactory はデバイスIDからFrameSourceを作成する関数型
type SourceFactory func(device string) FrameSource
