package mailer

import (
	"errors"
	"strings"
	"time"

	"github.com/campuslink/notification-server/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	mail "github.com/xhit/go-simple-mail/v2"
)

const emailTemplate = `<html><body>
<h3>{{title}}</h3>
<p>{{body}}</p>
<p style="color:#888;font-size:12px">You are receiving this because email notices are enabled for your account.</p>
</body></html>`

// Request is one email notice for one recipient.
type Request struct {
	RecipientId int64
	Name        string
	Address     string
	Subject     string
	Body        string
	Category    string
}

// Transport sends a single message. The SMTP client satisfies it in
// production; tests substitute a recorder.
type Transport interface {
	Send(to, subject, body string) error
}

type smtpTransport struct {
	client *mail.SMTPClient
	from   string
}

func (t *smtpTransport) Send(to, subject, body string) error {
	if t.client == nil {
		return errors.New("smtp transport not connected")
	}

	email := mail.NewMSG()
	email.SetFrom(t.from).AddTo(to).SetSubject(subject).SetBody(mail.TextHTML, body)

	if email.Error != nil {
		return email.Error
	}

	return email.Send(t.client)
}

// Mailer drains a bounded queue on a single worker goroutine, keeping a
// slow or broken mail transport entirely off the dispatch path. Every
// failure is terminal for that attempt; there is no retry loop.
type Mailer struct {
	queue     chan Request
	transport Transport
	done      chan struct{}
	log       zerolog.Logger
}

func New(client *mail.SMTPClient, from string, queueSize int) *Mailer {
	return NewWithTransport(&smtpTransport{client: client, from: from}, queueSize)
}

func NewWithTransport(transport Transport, queueSize int) *Mailer {
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Mailer{
		queue:     make(chan Request, queueSize),
		transport: transport,
		done:      make(chan struct{}),
		log:       log.With().Str("component", "mailer").Logger(),
	}
}

// Enqueue hands a request to the worker without ever blocking the caller.
// It reports false when the queue is full and the notice was dropped.
func (m *Mailer) Enqueue(req Request) bool {
	select {
	case m.queue <- req:
		return true
	default:
		return false
	}
}

func (m *Mailer) Start() {
	go m.worker()
}

func (m *Mailer) Stop() {
	close(m.queue)
	<-m.done
}

func (m *Mailer) worker() {
	defer close(m.done)

	for req := range m.queue {
		m.send(req)
	}
}

func (m *Mailer) send(req Request) {
	body := utils.Format(emailTemplate, map[string]string{
		"{{title}}": req.Subject,
		"{{body}}":  req.Body,
	})

	err := m.transport.Send(req.Address, req.Subject, body)
	if err != nil {
		m.log.Warn().
			Err(err).
			Str("reason", classify(err)).
			Int64("recipient", req.RecipientId).
			Str("category", req.Category).
			Time("at", time.Now()).
			Msg("Email notice failed")
		return
	}

	m.log.Debug().Int64("recipient", req.RecipientId).Str("category", req.Category).Msg("Email notice sent")
}

// classify buckets a send failure for operational follow-up.
func classify(err error) string {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "auth"):
		return "authentication_rejected"
	case strings.Contains(msg, "dial"), strings.Contains(msg, "connect"), strings.Contains(msg, "timeout"), strings.Contains(msg, "broken pipe"):
		return "transport_unreachable"
	case strings.Contains(msg, "address"), strings.Contains(msg, "recipient"), strings.Contains(msg, "mail to"):
		return "recipient_invalid"
	default:
		return "unknown"
	}
}
