package entity

import (
	"time"
)

const RoleAdmin = "admin"

type User struct {
	ID       string `json:"id" firestore:"id"`
	Nickname string `json:"nickname" firestore:"nickname"`
	Role     string `json:"role" firestore:"role"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName falls back to the id for users without a profile nickname.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.ID
}
