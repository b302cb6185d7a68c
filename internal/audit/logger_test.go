package audit

import (
	"context"
	"errors"
	"testing"

	"crewdesk/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo)

	logger.LogEvent(context.Background(), "t1", "i1", ActionLogin, "identity/i1", "10.0.0.1", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.TenantID != "t1" || entry.IdentityID != "i1" || entry.Action != ActionLogin {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("entry must carry id and timestamp")
	}
	if entry.IP != "10.0.0.1" {
		t.Errorf("ip = %q", entry.IP)
	}
}

func TestLogger_LogEventDefaults(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo)

	logger.LogEvent(context.Background(), "", "", ActionLoginFailure, "identity", "", "email=nobody@example.com")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].TenantID != SentinelTenantID {
		t.Errorf("tenant_id = %q, want %q", repo.entries[0].TenantID, SentinelTenantID)
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want unknown", repo.entries[0].IP)
	}
}

func TestLogger_LogEventBestEffort(t *testing.T) {
	logger := NewLogger(&mockAuditRepo{createErr: errors.New("db down")})
	// Must not panic or propagate the failure.
	logger.LogEvent(context.Background(), "t1", "i1", ActionLogout, "session", "", "")
}
