package stream

import (
	"context"
	"time"

	models "github.com/campuslink/notification-server/models/userdata"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store is the read slice of the notification repo a session polls.
type Store interface {
	ListUnread(ctx context.Context, recipient, afterId int64, limit int) ([]models.Notification, error)
	MaxId(ctx context.Context, recipient int64) (int64, error)
}

// Waker yields best-effort wake signals for one recipient.
type Waker interface {
	Subscribe(recipient int64) (<-chan int64, func())
}

// Emitter writes frames to the connected client. Any error it returns
// closes the session.
type Emitter interface {
	Notify(n models.Notification) error
	Heartbeat() error
}

type Config struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	ReadTimeout       time.Duration
	BatchLimit        int
}

// NoResume marks a connection without a resume token; the session then
// starts at the recipient's current max id so only future notices stream.
const NoResume int64 = -1

// Session is the per-connection delivery loop. It blocks idle on whichever
// fires first: a wake signal, the fallback poll tick, or the heartbeat tick.
// Wake and poll are redundant by construction, so a lost wake signal only
// delays delivery until the next poll.
type Session struct {
	recipient int64
	cursor    int64
	store     Store
	waker     Waker
	cfg       Config
	log       zerolog.Logger
}

func NewSession(recipient, resume int64, store Store, waker Waker, cfg Config) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 25 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 64
	}

	return &Session{
		recipient: recipient,
		cursor:    resume,
		store:     store,
		waker:     waker,
		cfg:       cfg,
		log:       log.With().Str("component", "stream").Int64("recipient", recipient).Logger(),
	}
}

// Cursor is the highest notification id emitted so far.
func (s *Session) Cursor() int64 {
	return s.cursor
}

// Run drives the session until the context is cancelled or the emitter
// fails. With a resume token, the first delivery pass serves the backlog
// past the token; without one, history is skipped and only new notices
// stream.
func (s *Session) Run(ctx context.Context, out Emitter) error {
	if s.cursor == NoResume {
		rctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		max, err := s.store.MaxId(rctx, s.recipient)
		cancel()
		if err != nil {
			return err
		}
		s.cursor = max
	}

	wake, unsubscribe := s.waker.Subscribe(s.recipient)
	defer unsubscribe()

	if err := s.deliver(ctx, out); err != nil {
		return err
	}

	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
			if err := s.deliver(ctx, out); err != nil {
				return err
			}
		case <-poll.C:
			if err := s.deliver(ctx, out); err != nil {
				return err
			}
		case <-heartbeat.C:
			if err := out.Heartbeat(); err != nil {
				return err
			}
		}
	}
}

// deliver drains everything past the cursor in ascending id order, advancing
// the cursor per emitted notice. A store read error is logged and left for
// the next tick; an emit error is terminal for the session.
func (s *Session) deliver(ctx context.Context, out Emitter) error {
	for {
		rctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		list, err := s.store.ListUnread(rctx, s.recipient, s.cursor, s.cfg.BatchLimit)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Msg("Poll failed, retrying on next tick")
			return nil
		}

		for _, n := range list {
			if err := out.Notify(n); err != nil {
				return err
			}
			s.cursor = n.Id
		}

		if len(list) < s.cfg.BatchLimit {
			return nil
		}
	}
}
