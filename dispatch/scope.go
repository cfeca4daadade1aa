package dispatch

import (
	"context"

	models "github.com/campuslink/notification-server/models/userdata"
)

// Actor is the authenticated identity an event originates from.
type Actor struct {
	Id      int64
	Role    string
	Program string
}

// Event describes one domain action to fan out. Explicit targets short
// circuit scope expansion; otherwise the category decides the rule.
type Event struct {
	Category    string  `json:"category" validate:"required,oneof=announcement task submission excuse grade enrollment system test"`
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Body        string  `json:"body" validate:"required,min=1,max=2000"`
	RelatedId   int64   `json:"related_id,omitempty" validate:"required_with=RelatedType,omitempty,gt=0"`
	RelatedType string  `json:"related_type,omitempty" validate:"required_with=RelatedId,omitempty,min=1,max=32"`
	ClassCode   string  `json:"class_code,omitempty" validate:"omitempty,min=1,max=16"`
	Urgent      bool    `json:"urgent,omitempty"`
	Targets     []int64 `json:"targets,omitempty" validate:"omitempty,dive,gt=0"`
}

// Directory is the membership lookup the resolver expands scopes through.
// Implemented by repos.UserRepo.
type Directory interface {
	ClassMembers(ctx context.Context, code string) ([]int64, error)
	ProgramChairs(ctx context.Context, program string) ([]int64, error)
	MainAdministrators(ctx context.Context) ([]int64, error)
}

type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve expands an event into its recipient set. Read-only: resolving the
// same event twice against unchanged membership yields the same set. An
// empty set is a valid outcome, not an error.
//
// Rules, first match wins:
//  1. explicit targets are used as-is
//  2. class-scoped categories expand to current class members, minus the actor
//  3. administrative categories expand to the chairpersons of the actor's
//     program plus the unscoped main administrator tier
func (r *Resolver) Resolve(ctx context.Context, event Event, actor Actor) ([]int64, error) {
	if len(event.Targets) > 0 {
		return dedupe(event.Targets), nil
	}

	switch event.Category {
	case models.CategoryAnnouncement, models.CategoryTask:
		if event.ClassCode == "" {
			return []int64{}, nil
		}

		members, err := r.dir.ClassMembers(ctx, event.ClassCode)
		if err != nil {
			return nil, err
		}
		return dedupe(exclude(members, actor.Id)), nil

	case models.CategoryExcuse, models.CategoryEnrollment, models.CategorySystem:
		recipients := make([]int64, 0)

		if actor.Program != "" {
			chairs, err := r.dir.ProgramChairs(ctx, actor.Program)
			if err != nil {
				return nil, err
			}
			recipients = append(recipients, chairs...)
		}

		admins, err := r.dir.MainAdministrators(ctx)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, admins...)

		return dedupe(exclude(recipients, actor.Id)), nil
	}

	// submission, grade, test address individuals and require explicit targets
	return []int64{}, nil
}

func exclude(ids []int64, actor int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != actor {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
