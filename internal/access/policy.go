// Package access holds the authorization rules for every API operation.
//
// A rule grants an operation to a set of roles, to the owner of the target
// resource, or to both. Role-only rules are enforced by middleware before a
// handler runs; rules with an ownership clause are evaluated by the handler
// once it knows the resource owner.
package access

import (
	"errors"
	"fmt"
	"slices"

	"github.com/erazemk/findme/internal/model"
)

// ErrForbidden is returned when the caller may not perform an operation.
var ErrForbidden = errors.New("forbidden")

// Operation names an authorized API operation.
type Operation string

// Operations.
const (
	ListMyItems       Operation = "items.list_mine"
	CreateItem        Operation = "items.create"
	UpdateItem        Operation = "items.update"
	DeleteItem        Operation = "items.delete"
	MarkItemFound     Operation = "items.mark_found"
	ListUsers         Operation = "users.list"
	GetUser           Operation = "users.get"
	UpdateUser        Operation = "users.update"
	DeleteUser        Operation = "users.delete"
	UpdateProfile     Operation = "users.update_profile"
	ListNotifications Operation = "admin.notifications"
	ViewAnalytics     Operation = "admin.analytics"
	ViewActivity      Operation = "admin.activity"
	Logout            Operation = "auth.logout"
	ChangePassword    Operation = "auth.change_password"
)

// Rule describes who may perform an operation.
type Rule struct {
	// Roles may perform the operation on any resource.
	Roles []string
	// Owner additionally allows the owner of the target resource.
	Owner bool
}

var (
	anyone     = []string{model.RoleUser, model.RoleAdmin}
	adminsOnly = []string{model.RoleAdmin}
)

// Policy maps operations to rules.
type Policy map[Operation]Rule

// DefaultPolicy is the rule table served by the API.
var DefaultPolicy = Policy{
	ListMyItems:       {Roles: anyone},
	CreateItem:        {Roles: anyone},
	UpdateItem:        {Owner: true},
	DeleteItem:        {Owner: true},
	MarkItemFound:     {Roles: anyone},
	ListUsers:         {Roles: adminsOnly},
	GetUser:           {Roles: adminsOnly, Owner: true},
	UpdateUser:        {Roles: adminsOnly, Owner: true},
	DeleteUser:        {Roles: adminsOnly},
	UpdateProfile:     {Roles: anyone},
	ListNotifications: {Roles: adminsOnly},
	ViewAnalytics:     {Roles: adminsOnly},
	ViewActivity:      {Roles: adminsOnly},
	Logout:            {Roles: anyone},
	ChangePassword:    {Roles: anyone},
}

// CheckRole allows the caller if their role is listed for op. Unknown
// operations get the zero rule, which allows nobody. Operations
// with an ownership clause pass so the handler can decide with the owner.
func (p Policy) CheckRole(op Operation, user *model.User) error {
	if user == nil {
		return fmt.Errorf("%w: %s: no user", ErrForbidden, op)
	}
	rule := p[op]
	if rule.Owner || slices.Contains(rule.Roles, user.Role) {
		return nil
	}
	return fmt.Errorf("%w: %s: role %q", ErrForbidden, op, user.Role)
}

// Check allows the caller if their role is listed for op, or if op allows
// owners and ownerID is the caller.
func (p Policy) Check(op Operation, user *model.User, ownerID int64) error {
	if user == nil {
		return fmt.Errorf("%w: %s: no user", ErrForbidden, op)
	}
	rule := p[op]
	if slices.Contains(rule.Roles, user.Role) {
		return nil
	}
	if rule.Owner && ownerID == user.ID {
		return nil
	}
	return fmt.Errorf("%w: %s: user %d", ErrForbidden, op, user.ID)
}
