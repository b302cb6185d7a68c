package domain

import "time"

// Identity is an authenticatable account belonging to exactly one tenant.
type Identity struct {
	ID             string
	TenantID       string
	Email          string
	CredentialHash string
	RoleID         string
	StatusID       string
	LastLoginAt    *time.Time // nil until first login
	CreatedAt      time.Time
}

// Status gates what an account may do. An identity whose status has
// CanLogin=false must fail authentication even with correct credentials.
type Status struct {
	ID       string
	TenantID string
	Name     string
	CanLogin bool
}
