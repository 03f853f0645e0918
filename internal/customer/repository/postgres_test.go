package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"fleet-provisioning/internal/customer/domain"
	"fleet-provisioning/internal/db"
	"fleet-provisioning/internal/db/migrate"

	"github.com/google/uuid"
)

func TestRecordProvisioning_InvalidCustomer(t *testing.T) {
	// Validation happens before the database is touched; a nil db would panic otherwise.
	r := NewPostgresRepository(nil)
	err := r.RecordProvisioning(context.Background(), &domain.Customer{ID: "alice"})
	if err == nil {
		t.Fatal("RecordProvisioning with missing ids should return error")
	}
}

// openTestDB connects to TEST_DATABASE_URL and applies migrations, or skips.
func openTestDB(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := migrate.Run(dsn, migrate.Up); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewPostgresRepository(conn)
}

func TestPostgresRepository_RoundTrip(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()
	id := "test_" + uuid.NewString()[:8]

	got, err := r.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID(%q) = %+v, want nil", id, got)
	}

	c := &domain.Customer{ID: id, SuperUserID: 10, EndUserID: 12, AccountID: time.Now().UnixNano(), Plan: "terminusgps_ext_hist"}
	if err := r.RecordProvisioning(ctx, c); err != nil {
		t.Fatalf("RecordProvisioning: %v", err)
	}
	now := time.Now().UTC()
	c.ProvisionedAt = &now
	c.Units = []domain.Unit{{UnitID: 7, ExternalID: "123456789012345"}}
	if err := r.RecordProvisioning(ctx, c); err != nil {
		t.Fatalf("RecordProvisioning (second): %v", err)
	}
	// Re-recording an attached unit is a no-op.
	if err := r.RecordProvisioning(ctx, c); err != nil {
		t.Fatalf("RecordProvisioning (third): %v", err)
	}

	got, err = r.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil after RecordProvisioning")
	}
	if got.SuperUserID != 10 || got.EndUserID != 12 || got.AccountID != c.AccountID {
		t.Errorf("ids = (%d, %d, %d), want (10, 12, %d)", got.SuperUserID, got.EndUserID, got.AccountID, c.AccountID)
	}
	if !got.Provisioned() {
		t.Error("Provisioned() = false, want true")
	}
	if len(got.Units) != 1 || got.Units[0].ExternalID != "123456789012345" {
		t.Errorf("Units = %+v, want one unit 123456789012345", got.Units)
	}
}
