package analyzer

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/BaSui01/viralshorts/media"
	"github.com/BaSui01/viralshorts/types"
)

const (
	DefaultYouTubeURL = "https://www.googleapis.com/youtube/v3"

	// ShortMaxSeconds 时长不超过该值的视频视为 Shorts
	ShortMaxSeconds = 60
)

// Channel 频道基本信息
type Channel struct {
	ID              string
	Title           string
	Subscribers     int64
	UploadsPlaylist string
}

// VideoStats 单个视频的统计
type VideoStats struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Duration int    `json:"duration"`
}

// YouTube Data API v3 只读客户端
type YouTube struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewYouTube 创建客户端；baseURL 为空时使用官方地址
func NewYouTube(apiKey, baseURL string, client *http.Client) *YouTube {
	if baseURL == "" {
		baseURL = DefaultYouTubeURL
	}
	return &YouTube{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Configured reports whether an API key is set.
func (y *YouTube) Configured() bool { return y.apiKey != "" }

func (y *YouTube) get(ctx context.Context, resource string, q url.Values, v any) error {
	if y.apiKey == "" {
		return types.NewNotConfiguredError("youtube", "YOUTUBE_API_KEY")
	}
	q.Set("key", y.apiKey)
	return media.GetJSON(ctx, y.client, "youtube", y.baseURL+"/"+resource+"?"+q.Encode(), nil, v)
}

type channelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// Channel 查询频道，未找到时返回 ErrNotFound
func (y *YouTube) Channel(ctx context.Context, id string) (*Channel, error) {
	var resp channelsResponse
	err := y.get(ctx, "channels", url.Values{
		"id":   {id},
		"part": {"statistics,snippet,contentDetails"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, types.NewError(types.ErrNotFound, "channel not found: "+id)
	}
	it := resp.Items[0]
	subs, _ := strconv.ParseInt(it.Statistics.SubscriberCount, 10, 64)
	return &Channel{
		ID:              it.ID,
		Title:           it.Snippet.Title,
		Subscribers:     subs,
		UploadsPlaylist: it.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}

type playlistResponse struct {
	Items []struct {
		Snippet struct {
			ResourceID struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// Shorts 读取上传列表中最近的 limit 个视频，只保留 Shorts
func (y *YouTube) Shorts(ctx context.Context, playlistID string, limit int) ([]VideoStats, error) {
	if limit <= 0 {
		limit = 20
	}
	var pl playlistResponse
	err := y.get(ctx, "playlistItems", url.Values{
		"playlistId": {playlistID},
		"part":       {"snippet"},
		"maxResults": {strconv.Itoa(limit)},
	}, &pl)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pl.Items))
	for _, it := range pl.Items {
		if id := it.Snippet.ResourceID.VideoID; id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var vr videosResponse
	err = y.get(ctx, "videos", url.Values{
		"id":   {strings.Join(ids, ",")},
		"part": {"statistics,contentDetails,snippet"},
	}, &vr)
	if err != nil {
		return nil, err
	}
	var out []VideoStats
	for _, it := range vr.Items {
		d := ParseISODuration(it.ContentDetails.Duration)
		if d > ShortMaxSeconds {
			continue
		}
		out = append(out, VideoStats{
			ID:       it.ID,
			Title:    it.Snippet.Title,
			Views:    atoi64(it.Statistics.ViewCount),
			Likes:    atoi64(it.Statistics.LikeCount),
			Comments: atoi64(it.Statistics.CommentCount),
			Duration: d,
		})
	}
	return out, nil
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
