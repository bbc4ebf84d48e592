// Package broll searches stock-footage APIs for portrait clips and keeps a
// per-keyword download cache.
package broll

import (
	"context"
	"errors"
)

// ErrNoClip 来源没有可用的视频
var ErrNoClip = errors.New("broll: no matching clip")

// Clip 来源返回的可下载视频
type Clip struct {
	ID       string
	URL      string
	Width    int
	Height   int
	Duration int
	Source   string
}

// Source 视频素材来源
type Source interface {
	Name() string
	Search(ctx context.Context, keyword string) (*Clip, error)
}
