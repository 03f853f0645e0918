// Package service runs the new-customer workflow against the Wialon Remote API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fleet-provisioning/internal/audit"
	customerdomain "fleet-provisioning/internal/customer/domain"
	"fleet-provisioning/internal/provisioning/domain"
	"fleet-provisioning/internal/provisioning/policy"
	"fleet-provisioning/internal/security"
	"fleet-provisioning/internal/telemetry"
	telemetrydomain "fleet-provisioning/internal/telemetry/domain"
	"fleet-provisioning/internal/wialon"
)

const tracerName = "fleet-provisioning/provisioning"

// ErrForeignItem is returned when an item with a derived name exists but belongs to someone else,
// so it cannot be adopted.
var ErrForeignItem = errors.New("provision: item exists with a different creator")

// CustomerRecorder durably records the remote ids of a provisioned customer.
type CustomerRecorder interface {
	RecordProvisioning(ctx context.Context, c *customerdomain.Customer) error
}

// Provisioner provisions customers. Each call to Provision owns its own Remote API session;
// a Provisioner is safe for concurrent use when its collaborators are.
type Provisioner struct {
	client   *wialon.Client
	token    string
	adminID  int64
	plan     string
	policy   policy.Evaluator
	recorder CustomerRecorder
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
	password func() (string, error)
	now      func() time.Time
	tracer   trace.Tracer
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithPolicy sets the policy evaluator. The default is policy.Static.
func WithPolicy(e policy.Evaluator) Option { return func(p *Provisioner) { p.policy = e } }

// WithRecorder sets where provisioned customers are recorded. Without one, ids are only returned.
func WithRecorder(r CustomerRecorder) Option { return func(p *Provisioner) { p.recorder = r } }

// WithAuditLogger sets the audit trail for remote mutations.
func WithAuditLogger(l audit.AuditLogger) Option { return func(p *Provisioner) { p.audit = l } }

// WithEventEmitter sets the emitter for step and outcome events.
func WithEventEmitter(e telemetry.EventEmitter) Option { return func(p *Provisioner) { p.events = e } }

// WithDefaultPlan sets the plan passed to the policy as its default.
func WithDefaultPlan(plan string) Option { return func(p *Provisioner) { p.plan = plan } }

// WithPasswordGenerator replaces the super-user password generator.
func WithPasswordGenerator(fn func() (string, error)) Option {
	return func(p *Provisioner) { p.password = fn }
}

// NewProvisioner returns a Provisioner that logs in with token and creates super-users as adminID.
func NewProvisioner(client *wialon.Client, token string, adminID int64, opts ...Option) *Provisioner {
	p := &Provisioner{
		client:   client,
		token:    token,
		adminID:  adminID,
		policy:   policy.Static{},
		password: security.GeneratePassword,
		now:      func() time.Time { return time.Now().UTC() },
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision runs the workflow for req. Invalid requests fail with a *wialon.ValidationError before any
// remote call. Once the workflow has started, every failure is a *domain.Failure naming the failing
// step and carrying the ids created so far. Running Provision again for the same customer adopts the
// items created by an earlier run instead of duplicating them.
func (p *Provisioner) Provision(ctx context.Context, req domain.Request) (*domain.Result, error) {
	req.Normalize()
	if err := p.validate(req); err != nil {
		return nil, err
	}
	decision, err := p.policy.Evaluate(ctx, policy.Input{
		CustomerID:  req.CustomerID,
		Tier:        req.Tier,
		UnitCount:   len(req.UnitExternalIDs),
		DefaultPlan: p.plan,
	})
	if err != nil {
		return nil, fmt.Errorf("provision %s: policy: %w", req.CustomerID, err)
	}

	runID := uuid.NewString()
	ctx = audit.WithRunID(ctx, runID)
	ctx, span := p.tracer.Start(ctx, "provision", trace.WithAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.String("provision.run_id", runID),
	))
	defer span.End()

	r := &run{
		p:        p,
		req:      req,
		decision: decision,
		res:      domain.Result{RunID: runID, CustomerID: req.CustomerID, State: domain.StateStart, Plan: decision.Plan},
	}
	log.Printf("provision: run %s for customer %s (plan %s, %d units)", runID, req.CustomerID, decision.Plan, len(req.UnitExternalIDs))

	err = wialon.WithSession(ctx, p.client, p.token, r.execute)
	var failure *domain.Failure
	if err != nil && !errors.As(err, &failure) {
		// Login failed before any step ran.
		failure = r.fail(r.res.State.Next(), err)
	}
	if failure != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Step.String())
		log.Printf("provision: customer %s failed at %s: %v", req.CustomerID, failure.Step, failure.Err)
		r.emit(ctx, telemetrydomain.EventProvisioningFailed, failure.Step, 0, failure.Err)
		return &failure.Result, failure
	}
	log.Printf("provision: customer %s done: super-user %d, account %d, end-user %d",
		req.CustomerID, r.res.SuperUserID, r.res.AccountID, r.res.EndUserID)
	r.emit(ctx, telemetrydomain.EventProvisioningSucceeded, domain.StateDone, r.res.AccountID, nil)
	res := r.res
	return &res, nil
}

func (p *Provisioner) validate(req domain.Request) error {
	for _, name := range []string{req.SuperUserName(), req.AccountName(), req.EndUserName()} {
		if err := wialon.ValidateName(name); err != nil {
			return err
		}
	}
	if strings.ContainsAny(req.CustomerID, "*,") {
		return &wialon.ValidationError{Field: "customerId", Reason: "must not contain '*' or ','"}
	}
	if err := security.ValidatePassword(req.Password); err != nil {
		return &wialon.ValidationError{Field: "password", Reason: err.Error()}
	}
	for _, id := range req.UnitExternalIDs {
		if strings.ContainsAny(id, "*,") {
			return &wialon.ValidationError{Field: "unitExternalId", Reason: fmt.Sprintf("%q must not contain '*' or ','", id)}
		}
	}
	if p.adminID <= 0 {
		return &wialon.ValidationError{Field: "adminId", Reason: "platform administrator id is not configured"}
	}
	return nil
}

func (r *run) fail(step domain.State, err error) *domain.Failure {
	res := r.res
	res.UnitIDs = append([]int64(nil), r.res.UnitIDs...)
	return &domain.Failure{Step: step, LastCompleted: r.res.State, Err: err, Result: res}
}

func (r *run) emit(ctx context.Context, eventType string, step domain.State, itemID int64, err error) {
	if r.p.events == nil {
		return
	}
	ev := &telemetrydomain.Event{
		ID:         uuid.NewString(),
		CustomerID: r.req.CustomerID,
		RunID:      r.res.RunID,
		EventType:  eventType,
		Source:     telemetrydomain.SourceProvisioner,
		Step:       step.String(),
		ItemID:     itemID,
		CreatedAt:  r.p.now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if eventType != telemetrydomain.EventStepCompleted {
		if meta, merr := json.Marshal(r.res); merr == nil {
			ev.Metadata = meta
		}
	}
	telemetry.EmitAsync(r.p.events, ctx, ev)
}
