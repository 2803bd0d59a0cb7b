package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log"
	"math"
	"time"
)

// streamWorker は1デバイスのキャプチャループを実行する
// レジストリのエントリ作成時に1ゴルーチンとして起動され、
// aliveフラグがfalseになるかデバイスが異常終了するまで動き続ける
func (r *Registry) streamWorker(h *streamHandle, width, height int) {
	defer close(h.done)

	log.Printf("デバイスを開いています: %s", h.deviceID)
	source := r.newSource(h.deviceID)
	ctx := context.Background()

	if err := source.Open(ctx); err != nil {
		log.Printf("警告: デバイス %s を開けませんでした: %v", h.deviceID, err)
		// 開けなかった場合もエントリは残っているため、異常終了として回収する
		r.reapAfterFailure(h)
		return
	}

	for r.isAlive(h.deviceID) {
		img, err := source.ReadFrame(ctx)
		if err != nil {
			// デバイス異常。ループを抜けて回収処理へ
			break
		}
		if img == nil {
			// フレームがまだ無い。少し待ってから再試行する
			time.Sleep(r.readBackoff)
			continue
		}

		img = resizeImage(img, width, height)

		encoded, err := encodeJPEG(img)
		if err != nil {
			log.Printf("警告: JPEGエンコードに失敗しました。フレームをスキップします: %v", err)
			continue
		}

		h.buffer.Publish(encoded)
	}

	log.Printf("デバイスを閉じています: %s", h.deviceID)
	if err := source.Close(); err != nil {
		log.Printf("警告: デバイス %s のクローズに失敗: %v", h.deviceID, err)
	}

	// aliveのままループを抜けた場合はデバイス異常による終了。
	// 停止要求による終了であれば、エントリの削除はStop呼び出し側が行う
	if r.isAlive(h.deviceID) {
		r.reapAfterFailure(h)
	}
}

// reapAfterFailure は異常終了したワーカーのエントリを回収する
func (r *Registry) reapAfterFailure(h *streamHandle) {
	time.Sleep(r.reapDelay)

	r.mu.Lock()
	if cur, exists := r.handles[h.deviceID]; exists && cur == h {
		delete(r.handles, h.deviceID)
	}
	r.mu.Unlock()

	h.buffer.Close()
	log.Printf("エラー: カメラ %s のストリーミング中に異常が発生しました", h.deviceID)
}

// resizeImage は画像をリサイズする
// 幅だけ指定された場合は高さをアスペクト比から導出する（高さのみも対称）。
// 両方とも0の場合は変換せずそのまま返す
func resizeImage(img image.Image, width, height int) image.Image {
	if width == 0 && height == 0 {
		return img
	}

	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()
	if srcWidth == 0 || srcHeight == 0 {
		return img
	}

	// 幅が指定されていれば幅を優先し、高さを導出する
	if width > 0 {
		height = int(math.Round(float64(srcHeight) * float64(width) / float64(srcWidth)))
	} else {
		width = int(math.Round(float64(srcWidth) * float64(height) / float64(srcHeight)))
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	if width == srcWidth && height == srcHeight {
		return img
	}

	// 最近傍法によるリサイズ
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*srcHeight/height
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + x*srcWidth/width
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// encodeJPEG は画像をJPEGバイト列にエンコードする
func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
