package domain

import "time"

// ============================================================
// Identities, profiles and role grants
// ============================================================

// Role is the privilege class of an identity.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePartner Role = "partner"
	// RoleCustomer is assumed for identities with no role grant.
	RoleCustomer Role = "customer"
)

// Profile statuses.
const (
	ProfileActive  = "active"
	ProfileBlocked = "blocked"
)

// Identity is an authentication account held by the auth provider.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
	// ExpiresAt is when the bearer token that proved this identity lapses.
	// Zero when unknown.
	ExpiresAt time.Time `json:"-"`
}

// Session is the resolved caller of a request. It is passed explicitly to
// every service operation that depends on who is calling.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Token  string `json:"-"`
	// ExpiresAt mirrors the token's exp claim; a cached session is never
	// served past it.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the session's token has lapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// IsPartner reports whether the session carries the partner role.
func (s *Session) IsPartner() bool {
	return s != nil && s.Role == RolePartner
}

// Profile is the per-identity record, keyed by identity id.
type Profile struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	CPF           string     `json:"cpf,omitempty"`
	Company       string     `json:"company,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Status        string     `json:"status"`
	BlockedAt     *time.Time `json:"blocked_at,omitempty"`
	BlockedReason *string    `json:"blocked_reason,omitempty"`
	LastAccessAt  *time.Time `json:"last_access_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// IsBlocked reports whether the profile is currently blocked.
func (p *Profile) IsBlocked() bool {
	return p.Status == ProfileBlocked
}

// RoleGrant assigns a role to an identity. At most one per identity.
type RoleGrant struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ProfileFilter narrows profile listings.
type ProfileFilter struct {
	Status string
	// Search matches name/email case-insensitively and phone/CPF as substrings.
	Search string
}
