package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campuslink/notification-server/channel"
	"github.com/campuslink/notification-server/config"
	"github.com/campuslink/notification-server/dispatch"
	models "github.com/campuslink/notification-server/models/userdata"
	"github.com/campuslink/notification-server/repos"
	"github.com/campuslink/notification-server/stream"
	"github.com/campuslink/notification-server/utils"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
)

const maxListLimit = 200

type NotificationController struct {
	fx.In

	Repo       *repos.NotificationRepo
	Dispatcher *dispatch.Dispatcher
	Channel    *channel.Broadcaster
	Redis      *redis.Client `optional:"true"`
}

var streamConfig stream.Config

func RegisterNotificationController(r *utils.Router, config *config.Config, c NotificationController) {
	streamConfig = stream.Config{
		PollInterval:      time.Second * time.Duration(config.StreamConfig.PollIntervalSec),
		HeartbeatInterval: time.Second * time.Duration(config.StreamConfig.HeartbeatIntervalSec),
		ReadTimeout:       time.Second * time.Duration(config.DispatchConfig.WriteTimeoutSec),
		BatchLimit:        config.StreamConfig.BatchLimit,
	}

	r.Post("/events",
		utils.Protected(originatorRoute),
		utils.RateLimit(c.Redis, config.DispatchConfig.RateLimitPerMinute, time.Minute),
		c.createEvent)

	notifications := r.Group("/notifications", utils.Protected(standardRoute))
	notifications.Get("/", c.list)
	notifications.Get("/stream", c.stream)
	notifications.Get("/unread-count", c.unreadCount)
	notifications.Put("/read-all", c.markAllRead)
	notifications.Put("/:id/read", c.markRead)

	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "notification"})
	})
}

func (r *NotificationController) createEvent(c *fiber.Ctx) error {
	event := new(dispatch.Event)
	if err := c.BodyParser(event); err != nil {
		return utils.StandardCouldNotParse(c)
	}

	actor := dispatch.Actor{
		Id:      c.Locals("user").(int64),
		Role:    c.Locals("role").(string),
		Program: c.Locals("program").(string),
	}

	result, err := r.Dispatcher.Dispatch(c.Context(), *event, actor)
	if err != nil {
		var invalid *dispatch.ValidationError
		if errors.As(err, &invalid) {
			return c.Status(fiber.StatusBadRequest).JSON(invalid.Fields)
		}

		return utils.StandardInternalError(c, err)
	}

	if len(result.Failed) > 0 && len(result.Created) == 0 {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Dispatch failed for every recipient",
			"failed": len(result.Failed),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  len(result.Failed),
	})
}

func (r *NotificationController) list(c *fiber.Ctx) error {
	recipient := c.Locals("user").(int64)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return utils.StandardCouldNotParse(c)
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	var (
		list []models.Notification
		err  error
	)

	if c.Query("unread_only") == "true" {
		after, _ := strconv.ParseInt(c.Query("after", "0"), 10, 64)
		list, err = r.Repo.ListUnread(c.Context(), recipient, after, limit)
	} else {
		list, err = r.Repo.ListRecent(c.Context(), recipient, limit)
	}
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(list)
}

func (r *NotificationController) unreadCount(c *fiber.Ctx) error {
	count, err := r.Repo.CountUnread(c.Context(), c.Locals("user").(int64))
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(fiber.Map{"count": count})
}

func (r *NotificationController) markRead(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.StandardCouldNotParse(c)
	}

	err = r.Repo.MarkRead(c.Context(), id, c.Locals("user").(int64))
	if err != nil {
		if errors.Is(err, repos.ErrForbidden) {
			return utils.StandardForbidden(c)
		}
		if errors.Is(err, repos.ErrNotFound) {
			return utils.StandardNotFound(c)
		}
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(fiber.Map{"read": true})
}

func (r *NotificationController) markAllRead(c *fiber.Ctx) error {
	updated, err := r.Repo.MarkAllRead(c.Context(), c.Locals("user").(int64))
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.JSON(fiber.Map{"read": updated})
}

// stream opens the long-lived SSE connection. The resume cursor comes from
// the Last-Event-ID header (EventSource reconnects set it automatically) or
// a ?resume= query; a fresh connection starts past the recipient's current
// max id so history is not replayed.
func (r *NotificationController) stream(c *fiber.Ctx) error {
	recipient := c.Locals("user").(int64)

	resume := stream.NoResume
	if raw := c.Get("Last-Event-ID", c.Query("resume")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return utils.StandardCouldNotParse(c)
		}
		resume = parsed
	}

	session := stream.NewSession(recipient, resume, r.Repo, r.Channel, streamConfig)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		err := session.Run(ctx, &sseEmitter{w: w})
		if err != nil {
			log.Debug().Err(err).Int64("recipient", recipient).Msg("Stream session closed")
		}
	}))

	return nil
}

// sseEmitter frames notifications as server-sent events. A failed flush
// means the client went away, which ends the session.
type sseEmitter struct {
	w *bufio.Writer
}

func (s *sseEmitter) Notify(n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: notification\ndata: %s\n\n", n.Id, payload); err != nil {
		return err
	}

	return s.w.Flush()
}

func (s *sseEmitter) Heartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}

	return s.w.Flush()
}
