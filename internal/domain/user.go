// Package domain defines the persistence models of the user directory. These
// types are mapped with GORM and returned as-is by the HTTP layer.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user can hold.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User is a directory entry.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username: case-folded handle. The unique index also covers
//     soft-deleted rows, so a deleted user's name stays taken.
//   - Email: contact address as provided.
//   - Role: "member" or "admin" (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type User struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Username  string         `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	Email     string         `json:"email"      gorm:"type:varchar(255);not null"`
	Role      string         `json:"role"       gorm:"type:varchar(16);not null;default:'member';check:role IN ('member','admin')"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_users_created"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
