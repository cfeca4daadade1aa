package dispatch

import (
	"context"
	"time"

	models "github.com/campuslink/notification-server/models/userdata"
	"github.com/campuslink/notification-server/providers/mailer"
	"github.com/campuslink/notification-server/utils"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store is the slice of the notification repo the dispatcher writes through.
type Store interface {
	Create(ctx context.Context, n *models.Notification) (int64, bool, error)
}

// Broadcaster delivers best-effort wake signals to live stream sessions.
type Broadcaster interface {
	Publish(recipient, id int64)
}

// MailSink accepts email delivery requests without blocking.
type MailSink interface {
	Enqueue(req mailer.Request) bool
}

// EmailDirectory resolves recipient ids to deliverable addresses, honoring
// the per-account email notice opt-in.
type EmailDirectory interface {
	EmailTargets(ctx context.Context, ids []int64) ([]models.User, error)
}

// Result reports one dispatch. Created holds the notification id for every
// resolved recipient, including ids of pre-existing rows a retried event
// deduplicated onto. Failed isolates per-recipient persistence errors.
type Result struct {
	Created []int64         `json:"created"`
	Skipped int             `json:"skipped"`
	Failed  map[int64]error `json:"-"`
}

// ValidationError rejects a malformed event before any state is created.
type ValidationError struct {
	Fields []*utils.ErrorResponse
}

func (e *ValidationError) Error() string {
	return "invalid event"
}

type Dispatcher struct {
	store        Store
	resolver     *Resolver
	channel      Broadcaster
	mail         MailSink
	users        EmailDirectory
	validate     *validator.Validate
	writeTimeout time.Duration
	log          zerolog.Logger
}

func NewDispatcher(store Store, resolver *Resolver, channel Broadcaster, mail MailSink, users EmailDirectory, writeTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		store:        store,
		resolver:     resolver,
		channel:      channel,
		mail:         mail,
		users:        users,
		validate:     validator.New(),
		writeTimeout: writeTimeout,
		log:          log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch resolves the event's scope, persists one notification per
// recipient, wakes live sessions and hands email off to the async mailer.
// One recipient's write failure never aborts the others, and email failures
// never surface to the caller: success is judged on the store step alone.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, actor Actor) (*Result, error) {
	if err := d.validate.Struct(event); err != nil {
		return nil, &ValidationError{Fields: utils.ValidateStruct(err)}
	}

	recipients, err := d.resolver.Resolve(ctx, event, actor)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Created: make([]int64, 0, len(recipients)),
		Failed:  make(map[int64]error),
	}

	if len(recipients) == 0 {
		d.log.Info().Str("category", event.Category).Int64("actor", actor.Id).Msg("Event resolved to empty scope")
		return result, nil
	}

	delivered := make(map[int64]int64, len(recipients))

	for _, recipient := range recipients {
		n := &models.Notification{
			RecipientId: recipient,
			Category:    event.Category,
			Title:       event.Title,
			Body:        event.Body,
			RelatedId:   event.RelatedId,
			RelatedType: event.RelatedType,
			ScopeTag:    event.ClassCode,
			Urgent:      event.Urgent,
		}

		wctx, cancel := context.WithTimeout(ctx, d.writeTimeout)
		id, skipped, err := d.store.Create(wctx, n)
		cancel()

		if err != nil {
			result.Failed[recipient] = err
			d.log.Error().Err(err).Int64("recipient", recipient).Str("category", event.Category).Msg("Could not persist notification")
			continue
		}

		result.Created = append(result.Created, id)
		if skipped {
			result.Skipped++
			continue
		}

		delivered[recipient] = id
	}

	for recipient, id := range delivered {
		d.channel.Publish(recipient, id)
	}

	if d.mail != nil && len(delivered) > 0 {
		ids := make([]int64, 0, len(delivered))
		for recipient := range delivered {
			ids = append(ids, recipient)
		}

		go d.queueEmails(event, ids)
	}

	return result, nil
}

// queueEmails runs off the request path so a slow directory read or a full
// mail queue cannot stall the triggering action.
func (d *Dispatcher) queueEmails(event Event, recipients []int64) {
	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	targets, err := d.users.EmailTargets(ctx, recipients)
	if err != nil {
		d.log.Warn().Err(err).Str("category", event.Category).Msg("Could not resolve email targets")
		return
	}

	for _, target := range targets {
		queued := d.mail.Enqueue(mailer.Request{
			RecipientId: target.Id,
			Name:        target.Name,
			Address:     target.Email,
			Subject:     event.Title,
			Body:        event.Body,
			Category:    event.Category,
		})
		if !queued {
			d.log.Warn().Int64("recipient", target.Id).Str("category", event.Category).Msg("Mail queue full, dropped email notice")
		}
	}
}
