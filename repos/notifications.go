package repos

import (
	"context"
	"errors"
	"strconv"
	"time"

	models "github.com/campuslink/notification-server/models/userdata"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrForbidden = errors.New("notification belongs to another recipient")
)

const countCacheTTL = 30 * time.Second

// NotificationRepo is the single source of truth for notifications. Ids are
// assigned by the database at insert time and are the ordering and resume
// cursor for stream delivery.
type NotificationRepo struct {
	db    *bun.DB
	cache *redis.Client
}

func NewNotificationRepo(db *bun.DB, cache *redis.Client) *NotificationRepo {
	return &NotificationRepo{db: db, cache: cache}
}

// Create persists one notification. When the row carries a related entity,
// the unique (category, related_type, related_id, recipient_id) tuple makes
// the insert idempotent: a conflicting insert is skipped and the existing id
// returned, so a redispatched event never duplicates a notice.
func (c *NotificationRepo) Create(ctx context.Context, n *models.Notification) (int64, bool, error) {
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	n.Read = false

	if n.RelatedId == 0 {
		_, err := c.db.NewInsert().Model(n).Returning("id").Exec(ctx)
		if err != nil {
			return 0, false, err
		}
		c.invalidateCount(n.RecipientId)
		return n.Id, false, nil
	}

	res, err := c.db.NewInsert().Model(n).On("CONFLICT DO NOTHING").Returning("id").Exec(ctx)
	if err != nil {
		return 0, false, err
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		existing := new(models.Notification)
		err := c.db.NewSelect().Model(existing).Column("id").
			Where("category = ?", n.Category).
			Where("related_type = ?", n.RelatedType).
			Where("related_id = ?", n.RelatedId).
			Where("recipient_id = ?", n.RecipientId).
			Scan(ctx)
		if err != nil {
			return 0, false, err
		}
		return existing.Id, true, nil
	}

	c.invalidateCount(n.RecipientId)
	return n.Id, false, nil
}

// ListUnread returns unread notifications with id > afterId in ascending id
// order. Ascending order on the assignment-time id is what makes stream
// delivery resumable.
func (c *NotificationRepo) ListUnread(ctx context.Context, recipient, afterId int64, limit int) ([]models.Notification, error) {
	list := make([]models.Notification, 0)

	err := c.db.NewSelect().Model(&list).
		Where("recipient_id = ?", recipient).
		Where("read = ?", false).
		Where("id > ?", afterId).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return list, nil
}

// ListRecent returns the newest notifications for a recipient, read or not,
// in ascending id order.
func (c *NotificationRepo) ListRecent(ctx context.Context, recipient int64, limit int) ([]models.Notification, error) {
	list := make([]models.Notification, 0)

	err := c.db.NewSelect().Model(&list).
		Where("recipient_id = ?", recipient).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}

	return list, nil
}

func (c *NotificationRepo) CountUnread(ctx context.Context, recipient int64) (int, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, countKey(recipient)).Result(); err == nil {
			if count, err := strconv.Atoi(cached); err == nil {
				return count, nil
			}
		}
	}

	count, err := c.db.NewSelect().Model((*models.Notification)(nil)).
		Where("recipient_id = ?", recipient).
		Where("read = ?", false).
		Count(ctx)
	if err != nil {
		return 0, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, countKey(recipient), strconv.Itoa(count), countCacheTTL)
	}

	return count, nil
}

// MarkRead flips the read flag of one notification, only for its owning
// recipient. A foreign record yields ErrForbidden with the row untouched; a
// repeated read on an owned record is an idempotent no-op.
func (c *NotificationRepo) MarkRead(ctx context.Context, id, recipient int64) error {
	res, err := c.db.NewUpdate().Model((*models.Notification)(nil)).
		Set("read = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("recipient_id = ?", recipient).
		Where("read = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, _ := res.RowsAffected(); rows > 0 {
		c.invalidateCount(recipient)
		return nil
	}

	existing := new(models.Notification)
	err = c.db.NewSelect().Model(existing).Column("recipient_id", "read").
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return ErrNotFound
	}

	if existing.RecipientId != recipient {
		return ErrForbidden
	}

	return nil
}

func (c *NotificationRepo) MarkAllRead(ctx context.Context, recipient int64) (int64, error) {
	res, err := c.db.NewUpdate().Model((*models.Notification)(nil)).
		Set("read = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("recipient_id = ?", recipient).
		Where("read = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, _ := res.RowsAffected()
	if rows > 0 {
		c.invalidateCount(recipient)
	}

	return rows, nil
}

// MaxId returns the highest notification id assigned to a recipient, the
// starting cursor for a stream connection without a resume token.
func (c *NotificationRepo) MaxId(ctx context.Context, recipient int64) (int64, error) {
	var max int64

	err := c.db.NewSelect().Model((*models.Notification)(nil)).
		ColumnExpr("COALESCE(MAX(id), 0)").
		Where("recipient_id = ?", recipient).
		Scan(ctx, &max)
	if err != nil {
		return 0, err
	}

	return max, nil
}

func (c *NotificationRepo) invalidateCount(recipient int64) {
	if c.cache == nil {
		return
	}

	if err := c.cache.Del(context.Background(), countKey(recipient)).Err(); err != nil {
		log.Debug().Err(err).Int64("recipient", recipient).Msg("Could not invalidate unread count cache")
	}
}

func countKey(recipient int64) string {
	return "unread:" + strconv.FormatInt(recipient, 10)
}
