package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Job 状态
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// Video 状态
const (
	VideoRendered = "rendered"
	VideoUploaded = "uploaded"
	VideoFailed   = "failed"
)

// StringList 以 JSON 文本存储的字符串列表
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("store: cannot scan %T into StringList", src)
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, (*[]string)(l))
}

// Job 一次生成任务
type Job struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	VideoType  string     `gorm:"not null" json:"video_type"`
	Count      int        `gorm:"not null;default:1" json:"count"`
	Upload     bool       `gorm:"not null;default:false" json:"upload"`
	Dynamic    bool       `gorm:"not null;default:false" json:"dynamic"`
	Status     string     `gorm:"not null;index" json:"status"`
	Error      string     `gorm:"not null;default:''" json:"error,omitempty"`
	VideoIDs   StringList `gorm:"column:video_ids;type:text" json:"video_ids"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// Video 一个渲染完成的视频
type Video struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	JobID           string    `gorm:"index" json:"job_id"`
	VideoType       string    `gorm:"not null" json:"video_type"`
	Topic           string    `json:"topic"`
	Title           string    `json:"title"`
	Hook            string    `json:"hook"`
	Content         string    `json:"content"`
	Category        string    `json:"category"`
	FilePath        string    `json:"file_path"`
	ArchiveURL      string    `json:"archive_url,omitempty"`
	Platform        string    `json:"platform,omitempty"`
	PlatformVideoID string    `json:"platform_video_id,omitempty"`
	PlatformURL     string    `json:"platform_url,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	QualityScore    float64   `json:"quality_score"`
	PredictedCTR    float64   `gorm:"column:predicted_ctr" json:"predicted_ctr"`
	Views           int64     `json:"views"`
	Likes           int64     `json:"likes"`
	Status          string    `gorm:"not null;index" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Video) TableName() string { return "videos" }

// Pattern 学到的病毒模式；(kind, value) 唯一，重复出现时 weight 累加
type Pattern struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"not null;uniqueIndex:idx_patterns_kind_value" json:"kind"`
	Value     string    `gorm:"not null;uniqueIndex:idx_patterns_kind_value" json:"value"`
	Source    string    `json:"source"`
	Weight    float64   `gorm:"not null;default:1" json:"weight"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Pattern) TableName() string { return "patterns" }
