// Package domain holds the tenant entity, the isolation boundary every other
// entity is scoped under.
package domain

import "time"

// Tenant is a company/organization. Tenants are created out-of-band (see
// cmd/seed) and are immutable as far as the auth subsystem is concerned.
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
