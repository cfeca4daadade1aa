package userdata

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	CategoryAnnouncement = "announcement"
	CategoryTask         = "task"
	CategorySubmission   = "submission"
	CategoryExcuse       = "excuse"
	CategoryGrade        = "grade"
	CategoryEnrollment   = "enrollment"
	CategorySystem       = "system"
	CategoryTest         = "test"
)

const (
	MaxTitleLength = 200
	MaxBodyLength  = 2000
)

// Notification is one durable notice for exactly one recipient. A fan-out
// event produces one row per recipient. Rows are immutable after creation
// except for the read flag, which the owning recipient flips once.
type Notification struct {
	bun.BaseModel `bun:"userdata.notifications"`

	Id          int64     `bun:",pk,autoincrement" json:"id"`
	RecipientId int64     `json:"recipient_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	RelatedId   int64     `bun:",nullzero" json:"related_id,omitempty"`
	RelatedType string    `bun:",nullzero" json:"related_type,omitempty"`
	ScopeTag    string    `bun:",nullzero" json:"scope_tag,omitempty"`
	Urgent      bool      `json:"urgent"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
