package broll

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BaSui01/viralshorts/media"
	"github.com/BaSui01/viralshorts/types"
)

const DefaultPexelsURL = "https://api.pexels.com"

// maxClipWidth 竖屏输出宽度，更宽的文件只会增加下载量
const maxClipWidth = 1080

// Pexels 视频搜索（竖屏）
type Pexels struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewPexels 创建 Pexels 来源；baseURL 为空时使用官方地址
func NewPexels(apiKey, baseURL string, client *http.Client) *Pexels {
	if baseURL == "" {
		baseURL = DefaultPexelsURL
	}
	return &Pexels{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsResponse struct {
	Videos []struct {
		ID         int64 `json:"id"`
		Duration   int   `json:"duration"`
		VideoFiles []struct {
			Quality  string `json:"quality"`
			FileType string `json:"file_type"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			Link     string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

// Search 返回第一个结果中宽度不超过 1080 的最宽 HD 文件；没有 HD 时退而取最宽文件
func (p *Pexels) Search(ctx context.Context, keyword string) (*Clip, error) {
	if p.apiKey == "" {
		return nil, types.NewNotConfiguredError("pexels", "pexels_api_key")
	}
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("orientation", "portrait")
	q.Set("size", "medium")
	q.Set("per_page", "5")

	header := http.Header{}
	header.Set("Authorization", p.apiKey)
	var resp pexelsResponse
	if err := media.GetJSON(ctx, p.client, "pexels", p.baseURL+"/videos/search?"+q.Encode(), header, &resp); err != nil {
		return nil, err
	}

	for _, v := range resp.Videos {
		best, bestHD := -1, false
		for i, f := range v.VideoFiles {
			if f.Link == "" || f.Width > maxClipWidth {
				continue
			}
			hd := f.Quality == "hd"
			if best < 0 || (hd && !bestHD) || (hd == bestHD && f.Width > v.VideoFiles[best].Width) {
				best, bestHD = i, hd
			}
		}
		if best >= 0 {
			f := v.VideoFiles[best]
			return &Clip{
				ID:       strconv.FormatInt(v.ID, 10),
				URL:      f.Link,
				Width:    f.Width,
				Height:   f.Height,
				Duration: v.Duration,
				Source:   p.Name(),
			}, nil
		}
	}
	return nil, ErrNoClip
}
