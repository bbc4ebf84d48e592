package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType 事件类型
type EventType string

const (
	EventJobQueued     EventType = "job_queued"
	EventJobStarted    EventType = "job_started"
	EventStage         EventType = "stage"
	EventEnhancer      EventType = "enhancer_skipped"
	EventVideoRejected EventType = "video_rejected"
	EventVideoDone     EventType = "video_done"
	EventVideoFailed   EventType = "video_failed"
	EventJobFinished   EventType = "job_finished"
)

// Event 流水线进度事件
type Event struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	VideoID   string    `json:"video_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus 把事件分发给订阅者。每个订阅者有独立缓冲区，缓冲区满时丢弃事件，
// 慢订阅者不会阻塞流水线。
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	next   uint64
	buffer int
	closed bool
	logger *zap.Logger
}

type subscription struct {
	jobID string
	ch    chan Event
}

// NewBus 创建事件总线，buffer 为每个订阅者的缓冲长度
func NewBus(buffer int, logger *zap.Logger) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[uint64]*subscription),
		buffer: buffer,
		logger: logger.With(zap.String("component", "event_bus")),
	}
}

// Subscribe 订阅某个作业的事件；jobID 为空时订阅全部。
// 返回的 cancel 关闭通道并释放订阅，可重复调用。
func (b *Bus) Subscribe(jobID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.next++
	id := b.next
	b.subs[id] = &subscription{jobID: jobID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish 非阻塞发布
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if sub.jobID != "" && sub.jobID != e.JobID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.logger.Debug("subscriber buffer full, event dropped",
				zap.String("job_id", e.JobID), zap.String("type", string(e.Type)))
		}
	}
}

// Subscribers 当前订阅者数量
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close 关闭所有订阅通道
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
