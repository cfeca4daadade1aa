package models

import (
	"github.com/campuslink/notification-server/models/userdata"
	"github.com/uptrace/bun"
)

func InitModelRegistrations(db *bun.DB) {
	db.RegisterModel((*userdata.ClassToUser)(nil))
}
