package model

import "time"

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"timestamp"`

	// Joined actor name (empty if the user no longer exists).
	UserName string `json:"userName,omitempty"`
}

// Activity actions.
const (
	ActionLogin       = "login"
	ActionRegister    = "register"
	ActionPostItem    = "post_item"
	ActionEditItem    = "edit_item"
	ActionDeleteItem  = "delete_item"
	ActionBanUser     = "ban_user"
	ActionDeleteUser  = "delete_user"
	ActionVerifyUser  = "verify_user"
	ActionEditProfile = "edit_profile"
)

// ValidAction reports whether action is a known activity tag.
func ValidAction(action string) bool {
	switch action {
	case ActionLogin, ActionRegister, ActionPostItem, ActionEditItem, ActionDeleteItem,
		ActionBanUser, ActionDeleteUser, ActionVerifyUser, ActionEditProfile:
		return true
	}
	return false
}
