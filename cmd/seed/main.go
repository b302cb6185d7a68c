// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev identity (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"crewdesk/internal/config"
	"crewdesk/internal/db"
	identitydomain "crewdesk/internal/identity/domain"
	identityrepo "crewdesk/internal/identity/repository"
	roledomain "crewdesk/internal/role/domain"
	rolerepo "crewdesk/internal/role/repository"
	"crewdesk/internal/security"
	tenantdomain "crewdesk/internal/tenant/domain"
	tenantrepo "crewdesk/internal/tenant/repository"
)

const (
	devTenantID       = "dev-tenant-001"
	devTenantName     = "acme"
	devEmail          = "dev@example.com"
	devAdminEmail     = "admin@example.com"
	devPassword       = "password123"
	devIdentityID     = "dev-identity-001"
	devAdminID        = "dev-identity-002"
	activeStatusID    = "dev-status-active"
	disabledStatusID  = "dev-status-disabled"
	managerRoleID     = "dev-role-manager"
	adminRoleID       = "dev-role-admin"
	permApproveID     = "dev-perm-approve"
	permViewTeamID    = "dev-perm-view-team"
	permManageSessID  = "dev-perm-manage-sessions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	identities := identityrepo.NewPostgresRepository(conn)
	roles := rolerepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)

	existing, err := identities.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()

	if err := tenants.Create(ctx, &tenantdomain.Tenant{
		ID: devTenantID, Name: devTenantName, CreatedAt: now,
	}); err != nil {
		log.Fatalf("tenant: %v", err)
	}

	statuses := []identitydomain.Status{
		{ID: activeStatusID, TenantID: devTenantID, Name: "active", CanLogin: true},
		{ID: disabledStatusID, TenantID: devTenantID, Name: "disabled", CanLogin: false},
	}
	for i := range statuses {
		if err := identities.CreateStatus(ctx, &statuses[i]); err != nil {
			log.Fatalf("status %s: %v", statuses[i].Name, err)
		}
	}

	perms := []roledomain.Permission{
		{ID: permApproveID, TenantID: devTenantID, Name: "approve_timesheet"},
		{ID: permViewTeamID, TenantID: devTenantID, Name: "view_team"},
		{ID: permManageSessID, TenantID: devTenantID, Name: roledomain.PermissionManageSessions},
	}
	for i := range perms {
		if err := roles.CreatePermission(ctx, &perms[i]); err != nil {
			log.Fatalf("permission %s: %v", perms[i].Name, err)
		}
	}

	if err := roles.Create(ctx, &roledomain.Role{
		ID: managerRoleID, TenantID: devTenantID, Name: "manager",
		Permissions: perms[:2],
	}); err != nil {
		log.Fatalf("role manager: %v", err)
	}
	if err := roles.Create(ctx, &roledomain.Role{
		ID: adminRoleID, TenantID: devTenantID, Name: "admin",
		Permissions: perms,
	}); err != nil {
		log.Fatalf("role admin: %v", err)
	}

	seedIdentities := []identitydomain.Identity{
		{ID: devIdentityID, TenantID: devTenantID, Email: devEmail, CredentialHash: hash, RoleID: managerRoleID, StatusID: activeStatusID, CreatedAt: now},
		{ID: devAdminID, TenantID: devTenantID, Email: devAdminEmail, CredentialHash: hash, RoleID: adminRoleID, StatusID: activeStatusID, CreatedAt: now},
	}
	for i := range seedIdentities {
		if err := identities.Create(ctx, &seedIdentities[i]); err != nil {
			log.Fatalf("identity %s: %v", seedIdentities[i].Email, err)
		}
	}

	log.Printf("Seeded tenant %s with identities %s and %s (password %q)", devTenantName, devEmail, devAdminEmail, devPassword)
}
