package models

import "time"

// User is a registered account.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(20);not null"`
	Password  string    `json:"-" gorm:"type:varchar(100);not null"` // digest, never serialized
	CreatedAt time.Time `json:"createTime" gorm:"index"`
	UpdatedAt time.Time `json:"updateTime"`
}

// UserProfile is the outward view of a User. It has no password field.
type UserProfile struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createTime"`
	UpdatedAt time.Time `json:"updateTime"`
}

// Profile strips the password digest.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (p UserProfile) Identity() Identity {
	return Identity{ID: p.ID, Username: p.Username}
}

// UserFilter selects one page of users.
type UserFilter struct {
	Keyword string
	Offset  int
	Limit   int
}

// UserChanges holds the columns an update writes. Nil fields are untouched.
type UserChanges struct {
	Username *string
	Password *string
}

// Empty reports whether the changes touch no column.
func (c UserChanges) Empty() bool {
	return c.Username == nil && c.Password == nil
}

// Identity is the authenticated principal carried by an auth token.
type Identity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}
