package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BaSui01/viralshorts/internal/pool"
)

// ErrNoSynthesizers 表示 Chain 中没有任何可用的 TTS Provider
var ErrNoSynthesizers = errors.New("speech: no synthesizer configured")

// Request 描述一次配音合成
type Request struct {
	Text   string  `json:"text"`
	Model  string  `json:"model,omitempty"`
	Voice  string  `json:"voice,omitempty"`
	Speed  float64 `json:"speed,omitempty"` // 0.25-4.0，0 表示使用 Provider 默认值
	Format string  `json:"format,omitempty"`
}

// Result 是写入磁盘的音频文件信息
type Result struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Path      string        `json:"path"`
	Format    string        `json:"format"`
	Bytes     int64         `json:"bytes"`
	CharCount int           `json:"char_count"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Synthesizer 把文本合成为音频文件
type Synthesizer interface {
	// Synthesize 合成 req.Text 并写入 path，成功时文件完整存在
	Synthesize(ctx context.Context, req *Request, path string) (*Result, error)

	// Name 返回 Provider 名称
	Name() string
}

// writeAudio 先写临时文件再 rename，失败时不会留下半截音频
func writeAudio(path string, body io.Reader) (int64, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create audio dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tts-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := pool.Downloads.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = errors.New("empty audio stream")
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write audio: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("move audio into place: %w", err)
	}
	return n, nil
}
