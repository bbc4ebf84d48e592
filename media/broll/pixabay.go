package broll

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BaSui01/viralshorts/media"
	"github.com/BaSui01/viralshorts/types"
)

const DefaultPixabayURL = "https://pixabay.com/api/videos/"

// Pixabay 视频搜索，Pexels 没有结果时使用
type Pixabay struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewPixabay(apiKey, baseURL string, client *http.Client) *Pixabay {
	if baseURL == "" {
		baseURL = DefaultPixabayURL
	}
	return &Pixabay{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (p *Pixabay) Name() string { return "pixabay" }

type pixabayFile struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pixabayResponse struct {
	Hits []struct {
		ID       int64 `json:"id"`
		Duration int   `json:"duration"`
		Videos   struct {
			Large  pixabayFile `json:"large"`
			Medium pixabayFile `json:"medium"`
			Small  pixabayFile `json:"small"`
		} `json:"videos"`
	} `json:"hits"`
}

// Search 优先 large，其次 medium、small，跳过宽于 1080 的文件
func (p *Pixabay) Search(ctx context.Context, keyword string) (*Clip, error) {
	if p.apiKey == "" {
		return nil, types.NewNotConfiguredError("pixabay", "pixabay_api_key")
	}
	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", keyword)
	q.Set("per_page", "5")
	q.Set("safesearch", "true")

	var resp pixabayResponse
	if err := media.GetJSON(ctx, p.client, "pixabay", p.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	for _, h := range resp.Hits {
		for _, f := range []pixabayFile{h.Videos.Large, h.Videos.Medium, h.Videos.Small} {
			if f.URL == "" || f.Width > maxClipWidth {
				continue
			}
			return &Clip{
				ID:       strconv.FormatInt(h.ID, 10),
				URL:      f.URL,
				Width:    f.Width,
				Height:   f.Height,
				Duration: h.Duration,
				Source:   p.Name(),
			}, nil
		}
	}
	return nil, ErrNoClip
}
