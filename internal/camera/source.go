package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"regexp"
	"sync"
)

// FFmpegSource はffmpegのパイプ経由でV4L2デバイスからフレームを取得する
// FrameSource実装
type FFmpegSource struct {
	device string

	cmd    *exec.Cmd
	stdout io.ReadCloser

	// JPEGフレーム切り出し用の読み残しバッファ
	readBuf     []byte
	frameBuffer bytes.Buffer

	mu sync.Mutex
}

// NewFFmpegSource は新しいFFmpegSourceを作成する
// deviceは"0"のようなインデックスか"/dev/video0"のようなパスを受け付ける
func NewFFmpegSource(device string) FrameSource {
	return &FFmpegSource{
		device:  DevicePath(device),
		readBuf: make([]byte, 64*1024),
	}
}

// Open はffmpegプロセスを起動してデバイスを開く
func (s *FFmpegSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("デバイス %s は既に開かれています", s.device)
	}

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-i", s.device,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	return nil
}

// ReadFrame はパイプから完全なJPEGフレームを1枚切り出してデコードする
// プロセスが終了した場合はエラーを返す
func (s *FFmpegSource) ReadFrame(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil, fmt.Errorf("デバイス %s は開かれていません", s.device)
	}

	for {
		// バッファ済みデータから完全なフレームを探す
		if frame := s.extractFrame(); frame != nil {
			img, err := jpeg.Decode(bytes.NewReader(frame))
			if err != nil {
				// 壊れたフレームは読み飛ばす
				return nil, nil
			}
			return img, nil
		}

		n, err := s.stdout.Read(s.readBuf)
		if n > 0 {
			s.frameBuffer.Write(s.readBuf[:n])
		}
		if err != nil {
			return nil, fmt.Errorf("フレーム読み取りエラー: %w", err)
		}
	}
}

// extractFrame はバッファからJPEGマーカーで区切られた1フレームを切り出す
// 完全なフレームがない場合はnilを返す
func (s *FFmpegSource) extractFrame() []byte {
	data := s.frameBuffer.Bytes()

	// JPEGの開始マーカー（FF D8）を探す
	startIdx := bytes.Index(data, []byte{0xFF, 0xD8})
	if startIdx == -1 {
		return nil
	}

	// JPEGの終了マーカー（FF D9）を探す
	endIdx := bytes.Index(data[startIdx+2:], []byte{0xFF, 0xD9})
	if endIdx == -1 {
		// 完全なフレームがまだない。先頭の不要データだけ削除する
		if startIdx > 0 {
			remaining := data[startIdx:]
			s.frameBuffer.Reset()
			s.frameBuffer.Write(remaining)
		}
		return nil
	}

	endIdx += startIdx + 2 + 2 // マーカーのサイズを含める
	frame := make([]byte, endIdx-startIdx)
	copy(frame, data[startIdx:endIdx])

	remaining := data[endIdx:]
	s.frameBuffer.Reset()
	if len(remaining) > 0 {
		s.frameBuffer.Write(remaining)
	}
	return frame
}

// Close はffmpegプロセスを終了してデバイスを解放する
func (s *FFmpegSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}

	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait() // 強制終了によるエラーは無視

	s.cmd = nil
	s.stdout = nil
	s.frameBuffer.Reset()
	return nil
}

var deviceIndexPattern = regexp.MustCompile(`^\d+$`)

// DevicePath はデバイスIDをデバイスパスに変換する
// "0" のようなインデックスは "/dev/video0" に展開する
func DevicePath(device string) string {
	if deviceIndexPattern.MatchString(device) {
		return "/dev/video" + device
	}
	return device
}
