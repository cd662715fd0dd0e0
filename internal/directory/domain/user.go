package domain

// UserStatus account state; 0=inactive, 1=active, 2=suspended
type UserStatus int

const (
	// UserStatusInactive account disabled
	UserStatusInactive UserStatus = iota
	// UserStatusActive account in good standing
	UserStatusActive
	// UserStatusSuspended account blocked by staff
	UserStatusSuspended
)

// User directory entry of a message counterpart
type User struct {
	ID     int64      `json:"-"`
	UserID string     `json:"user_id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   string     `json:"role"`
	Status UserStatus `json:"status"`
}
