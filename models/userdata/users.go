package userdata

import "github.com/uptrace/bun"

const (
	RoleAdministrator = "administrator"
	RoleChairperson   = "chairperson"
	RoleInstructor    = "instructor"
	RoleStudent       = "student"
)

// User carries the account fields this service reads for scoping and email
// delivery. Account lifecycle itself is managed elsewhere. An administrator
// with an empty program tag is the unscoped main tier, assigned explicitly
// when the account is provisioned.
type User struct {
	bun.BaseModel `bun:"userdata.users"`

	Id           int64   `bun:",pk,autoincrement" json:"id,omitempty"`
	Name         string  `json:"name,omitempty"`
	Email        string  `json:"email,omitempty"`
	Role         string  `json:"role,omitempty"`
	Program      string  `bun:",nullzero" json:"program,omitempty"`
	EmailNotices bool    `json:"email_notices,omitempty"`
	Verified     bool    `json:"verified,omitempty"`
	Classes      []Class `bun:"m2m:userdata.classes_users,join:Users=Classes" json:"classes,omitempty"`
}
