package audit

import (
	"context"
	"errors"
	"testing"

	"fleet-provisioning/internal/audit/domain"
)

// mockAuditRepo implements audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, RunIDFromContext)
	ctx := WithRunID(context.Background(), "run-1")

	logger.LogEvent(ctx, "alice", "create", "user", 42, "super_alice")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.CustomerID != "alice" {
		t.Errorf("customer_id = %q, want %q", entry.CustomerID, "alice")
	}
	if entry.RunID != "run-1" {
		t.Errorf("run_id = %q, want %q", entry.RunID, "run-1")
	}
	if entry.Action != "create" {
		t.Errorf("action = %q, want %q", entry.Action, "create")
	}
	if entry.Resource != "user" {
		t.Errorf("resource = %q, want %q", entry.Resource, "user")
	}
	if entry.ItemID != 42 {
		t.Errorf("item_id = %d, want %d", entry.ItemID, 42)
	}
	if entry.Metadata != "super_alice" {
		t.Errorf("metadata = %q, want %q", entry.Metadata, "super_alice")
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_RunID(t *testing.T) {
	tests := []struct {
		name   string
		source RunIDExtractor
		ctx    context.Context
		want   string
	}{
		{"nil extractor", nil, context.Background(), "unknown"},
		{"empty run id", RunIDFromContext, context.Background(), "unknown"},
		{"custom extractor", func(context.Context) string { return "fixed" }, context.Background(), "fixed"},
		{"from context", RunIDFromContext, WithRunID(context.Background(), "run-9"), "run-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAuditRepo{}
			NewLogger(repo, tt.source).LogEvent(tt.ctx, "alice", "create", "user", 1, "")
			if len(repo.entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(repo.entries))
			}
			if repo.entries[0].RunID != tt.want {
				t.Errorf("run_id = %q, want %q", repo.entries[0].RunID, tt.want)
			}
		})
	}
}

func TestLogger_LogEvent_SentinelCustomerID(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", "login", "token", 0, "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].CustomerID != SentinelCustomerID {
		t.Errorf("customer_id = %q, want %q", repo.entries[0].CustomerID, SentinelCustomerID)
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	logger := NewLogger(repo, nil)

	// Should not panic or return error - best-effort logging
	logger.LogEvent(context.Background(), "alice", "create", "user", 1, "")
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	logger := NewLogger(nil, nil)

	// Should not panic - no-op when repo is nil
	logger.LogEvent(context.Background(), "alice", "create", "user", 1, "")
}
