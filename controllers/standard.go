package controllers

import (
	models "github.com/campuslink/notification-server/models/userdata"
	"github.com/campuslink/notification-server/utils"
)

var standardRoute = utils.JwtMiddlewareConfig{
	ReadFrom: "header",
	Subject:  "access",
	Scopes:   []string{"basic"},
}

// originatorRoute restricts event creation to the roles whose domain actions
// fan out notices. Students trigger events indirectly (e.g. submitting work
// notifies the grading instructor), so they are included.
var originatorRoute = utils.JwtMiddlewareConfig{
	ReadFrom: "header",
	Subject:  "access",
	Scopes:   []string{"basic"},
	Roles: []string{
		models.RoleAdministrator,
		models.RoleChairperson,
		models.RoleInstructor,
		models.RoleStudent,
	},
}
