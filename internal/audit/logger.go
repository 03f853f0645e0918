package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"fleet-provisioning/internal/audit/domain"
	auditrepo "fleet-provisioning/internal/audit/repository"
)

// SentinelCustomerID is the customer_id used for events recorded before a customer id is known.
const SentinelCustomerID = "_system"

// RunIDExtractor returns the provisioning run id carried by ctx.
type RunIDExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the provisioning orchestrator.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, customerID, action, resource string, itemID int64, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional run id extractor.
type Logger struct {
	repo        auditrepo.Repository
	runIDSource RunIDExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses runIDSource for the run id.
// runIDSource may be nil; then the run id is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, runIDSource RunIDExtractor) *Logger {
	return &Logger{repo: repo, runIDSource: runIDSource}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, customerID, action, resource string, itemID int64, metadata string) {
	if l.repo == nil {
		return
	}
	runID := "unknown"
	if l.runIDSource != nil {
		if id := l.runIDSource(ctx); id != "" {
			runID = id
		}
	}
	if customerID == "" {
		customerID = SentinelCustomerID
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		RunID:      runID,
		Action:     action,
		Resource:   resource,
		ItemID:     itemID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

type runIDKey struct{}

// WithRunID returns a copy of ctx carrying the provisioning run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id set by WithRunID, or "". It satisfies RunIDExtractor.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
