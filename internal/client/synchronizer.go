// Package client keeps a client-side view of synthesis state in sync
// with the change feed.
package client

import (
	"log/slog"
	"sync"
	"time"

	"github.com/chapterlyapp/chapterly-server/internal/sse"
)

// JobView is the synchronizer's per-chapter snapshot of the latest
// synthesis job transition it has observed.
type JobView struct {
	JobID           string
	ChapterID       string
	State           string
	AudioURL        string
	DurationSeconds int
	FailureReason   string
	UpdatedAt       time.Time
}

// Notification records a social event awaiting the user's attention.
type Notification struct {
	Type       sse.EventType
	ChapterID  string
	ActorID    string
	CommentID  string
	ReceivedAt time.Time
}

// Synchronizer consumes the change feed and maintains a map of chapter ID
// to latest job view. Per-chapter delivery order is last-write-wins: each
// incoming transition replaces the previous view for that chapter.
// Close is the only cancellation primitive.
type Synchronizer struct {
	manager *sse.Manager
	conn    *sse.Client
	logger  *slog.Logger

	mu            sync.RWMutex
	jobs          map[string]JobView
	notifications []Notification
	watchers      []chan JobView

	closeOnce sync.Once
	done      chan struct{}
}

// NewSynchronizer connects to the feed and starts consuming events.
func NewSynchronizer(manager *sse.Manager, logger *slog.Logger) (*Synchronizer, error) {
	conn, err := manager.Connect()
	if err != nil {
		return nil, err
	}

	s := &Synchronizer{
		manager: manager,
		conn:    conn,
		logger:  logger,
		jobs:    make(map[string]JobView),
		done:    make(chan struct{}),
	}
	go s.consume()
	return s, nil
}

// consume runs until the connection or the synchronizer is closed.
func (s *Synchronizer) consume() {
	for {
		select {
		case event, ok := <-s.conn.EventChan:
			if !ok {
				return
			}
			s.apply(event)
		case <-s.conn.Done:
			return
		case <-s.done:
			return
		}
	}
}

// apply folds one event into local state.
func (s *Synchronizer) apply(event sse.Event) {
	switch data := event.Data.(type) {
	case sse.JobStateEventData:
		view := JobView{
			JobID:           data.JobID,
			ChapterID:       data.ChapterID,
			State:           data.State,
			AudioURL:        data.AudioURL,
			DurationSeconds: data.DurationSeconds,
			FailureReason:   data.FailureReason,
			UpdatedAt:       event.Timestamp,
		}

		s.mu.Lock()
		s.jobs[data.ChapterID] = view
		watchers := make([]chan JobView, len(s.watchers))
		copy(watchers, s.watchers)
		s.mu.Unlock()

		for _, watcher := range watchers {
			select {
			case watcher <- view:
			default:
				s.logger.Debug("watcher channel full, dropping view",
					slog.String("chapter_id", view.ChapterID))
			}
		}

	case sse.SocialEventData:
		s.mu.Lock()
		s.notifications = append(s.notifications, Notification{
			Type:       event.Type,
			ChapterID:  data.ChapterID,
			ActorID:    data.ActorID,
			CommentID:  data.CommentID,
			ReceivedAt: event.Timestamp,
		})
		s.mu.Unlock()
	}
}

// Job returns the latest observed view for a chapter.
func (s *Synchronizer) Job(chapterID string) (JobView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.jobs[chapterID]
	return view, ok
}

// Snapshot returns a copy of all chapter views.
func (s *Synchronizer) Snapshot() map[string]JobView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]JobView, len(s.jobs))
	for chapterID, view := range s.jobs {
		snapshot[chapterID] = view
	}
	return snapshot
}

// Watch returns a channel that receives every job view update.
// The channel is buffered; a slow consumer misses intermediate views,
// never the map state.
func (s *Synchronizer) Watch() <-chan JobView {
	watcher := make(chan JobView, 100)
	s.mu.Lock()
	s.watchers = append(s.watchers, watcher)
	s.mu.Unlock()
	return watcher
}

// Notifications returns pending social notifications, oldest first.
func (s *Synchronizer) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// ClearNotifications discards all pending notifications.
func (s *Synchronizer) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// Close disconnects from the feed and stops the consumer.
// Safe to call more than once.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.manager.Disconnect(s.conn.ID)

		s.mu.Lock()
		for _, watcher := range s.watchers {
			close(watcher)
		}
		s.watchers = nil
		s.mu.Unlock()
	})
}
