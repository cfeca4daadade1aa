package userdata

import "github.com/uptrace/bun"

type Class struct {
	bun.BaseModel `bun:"userdata.classes"`

	Id      int64  `bun:",pk,autoincrement" json:"id,omitempty"`
	Code    string `json:"code,omitempty"`
	Name    string `json:"name,omitempty"`
	Program string `bun:",nullzero" json:"program,omitempty"`
	Users   []User `bun:"m2m:userdata.classes_users,join:Classes=Users" json:"users,omitempty"`
}

type ClassToUser struct {
	bun.BaseModel `bun:"userdata.classes_users"`

	ClassId int64  `bun:",pk"`
	Classes *Class `bun:"rel:belongs-to,join:class_id=id"`
	UserId  int64  `bun:",pk"`
	Users   *User  `bun:"rel:belongs-to,join:user_id=id"`
}
