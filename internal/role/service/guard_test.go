package service

import (
	"context"
	"errors"
	"testing"

	identitydomain "crewdesk/internal/identity/domain"
)

type memIdentityGetter struct {
	m   map[string]*identitydomain.Identity // key: tenantID + "/" + id
	err error
}

func (g *memIdentityGetter) GetByID(ctx context.Context, tenantID, id string) (*identitydomain.Identity, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.m[tenantID+"/"+id], nil
}

func TestGuard_Check(t *testing.T) {
	roles := newMemRoleRepo()
	if err := roles.Create(context.Background(), managerRole()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	idents := &memIdentityGetter{m: map[string]*identitydomain.Identity{
		"t1/i1": {ID: "i1", TenantID: "t1", RoleID: "r1"},
	}}
	guard := NewGuard(idents, NewResolver(roles))

	ok, err := guard.Check(context.Background(), "t1", "i1", "approve_timesheet")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !ok {
		t.Error("manager should hold approve_timesheet")
	}

	ok, err = guard.Check(context.Background(), "t1", "i1", "manage_sessions")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if ok {
		t.Error("manager should not hold manage_sessions")
	}
}

func TestGuard_CheckUnknownIdentity(t *testing.T) {
	guard := NewGuard(&memIdentityGetter{m: map[string]*identitydomain.Identity{}}, NewResolver(newMemRoleRepo()))
	ok, err := guard.Check(context.Background(), "t1", "ghost", "approve_timesheet")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if ok {
		t.Error("unknown identity must be denied")
	}
}

func TestGuard_CheckStorageError(t *testing.T) {
	guard := NewGuard(&memIdentityGetter{err: errors.New("db down")}, NewResolver(newMemRoleRepo()))
	if _, err := guard.Check(context.Background(), "t1", "i1", "approve_timesheet"); err == nil {
		t.Error("storage failures must propagate")
	}
}
