package authkit

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role name
type UserRole = string

const (
	// RoleUser is the default role granted at registration
	RoleUser UserRole = "USER"
	// RoleAdmin is the operator role
	RoleAdmin UserRole = "ADMIN"
)

// User is the account model. This package only ever mutates IsActive, on
// successful activation; everything else belongs to the host application.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	IsActive      bool       `bun:"is_active" json:"is_active,omitempty"`
	IsLocked      bool       `bun:"is_locked" json:"is_locked,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// FullName joins the name parts for email templates
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Role is a named entry in the role catalog. Registration fails if the
// catalog has not been seeded with the default role.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ActivationCode is a one-time numeric code proving control of the
// registered email. Lifecycle: created at registration, regenerated as a
// new row when activation is attempted after expiry, and made inert the
// moment ValidatedAt is stamped.
type ActivationCode struct {
	bun.BaseModel `bun:"table:activation_codes,alias:act"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          string     `bun:"code,notnull" json:"code,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ValidatedAt   *time.Time `bun:"validated_at,nullzero" json:"validated_at,omitempty"`
}

// IsExpired reports whether the code is past its window at the given time.
func (c *ActivationCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// IsConsumed reports whether the code has already been used.
func (c *ActivationCode) IsConsumed() bool {
	return c.ValidatedAt != nil
}

// BlacklistToken marks a token id as permanently rejected. Rows are only
// meaningful until ExpiryTime; after that the token is unusable through
// natural expiry and the row may be pruned.
type BlacklistToken struct {
	bun.BaseModel `bun:"table:blacklist_tokens,alias:blt"`
	ID            string    `bun:"id,pk" json:"id,omitempty"`
	Token         string    `bun:"token,notnull" json:"token,omitempty"`
	ExpiryTime    time.Time `bun:"expiry_time,notnull" json:"expiry_time,omitempty"`
}
