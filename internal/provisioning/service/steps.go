package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fleet-provisioning/internal/audit"
	customerdomain "fleet-provisioning/internal/customer/domain"
	"fleet-provisioning/internal/provisioning/domain"
	"fleet-provisioning/internal/provisioning/policy"
	telemetrydomain "fleet-provisioning/internal/telemetry/domain"
	"fleet-provisioning/internal/wialon"
	"fleet-provisioning/internal/wialon/access"
	"fleet-provisioning/internal/wialon/items"
	"fleet-provisioning/internal/wialon/lookup"
)

// run is the state of one Provision call.
type run struct {
	p        *Provisioner
	req      domain.Request
	decision policy.Decision
	res      domain.Result

	superUser *items.User
	resource  *items.Resource
	account   *items.Account
	endUser   *items.User
}

type step struct {
	state domain.State
	fn    func(ctx context.Context, s *wialon.Session) (int64, error)
}

func (r *run) steps() []step {
	return []step{
		{domain.StateSuperUserCreated, r.createSuperUser},
		{domain.StateAccountCreated, r.createResource},
		{domain.StateAccountPlanAssigned, r.assignPlan},
		{domain.StateEndUserCreated, r.createEndUser},
		{domain.StateAccessGranted, r.grantAccess},
		{domain.StateAccountEnabled, r.enableAccount},
		{domain.StateAccountDisabledPendingSubscription, r.disableAccount},
		{domain.StateUnitsAttached, r.attachUnits},
		{domain.StateDone, r.record},
	}
}

// execute runs every step in order inside one session and stops at the first failure.
func (r *run) execute(ctx context.Context, s *wialon.Session) error {
	for _, st := range r.steps() {
		stepCtx, span := r.p.tracer.Start(ctx, "provision."+st.state.String(),
			trace.WithAttributes(attribute.String("customer.id", r.req.CustomerID)))
		itemID, err := st.fn(stepCtx, s)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return r.fail(st.state, err)
		}
		span.End()
		r.res.State = st.state
		r.emit(ctx, telemetrydomain.EventStepCompleted, st.state, itemID, nil)
	}
	return nil
}

func (r *run) createSuperUser(ctx context.Context, s *wialon.Session) (int64, error) {
	name := r.req.SuperUserName()
	u, reused, err := ensure(ctx, s, wialon.ItemTypeUser, name, r.p.adminID,
		func() (*items.User, error) {
			password, err := r.p.password()
			if err != nil {
				return nil, fmt.Errorf("generate password: %w", err)
			}
			return items.CreateUser(ctx, s, r.p.adminID, name, password)
		},
		func(id int64) (*items.User, error) { return items.GetUser(ctx, s, id) })
	if err != nil {
		return 0, err
	}
	r.superUser = u
	r.res.SuperUserID = u.ID()
	r.track(ctx, domain.StateSuperUserCreated, wialon.SvcCreateUser, u.ID(), reused)
	return u.ID(), nil
}

func (r *run) createResource(ctx context.Context, s *wialon.Session) (int64, error) {
	name := r.req.AccountName()
	res, reused, err := ensure(ctx, s, wialon.ItemTypeResource, name, r.superUser.ID(),
		func() (*items.Resource, error) { return items.CreateResource(ctx, s, r.superUser.ID(), name) },
		func(id int64) (*items.Resource, error) { return items.GetResource(ctx, s, id) })
	if err != nil {
		return 0, err
	}
	r.resource = res
	r.res.AccountID = res.ID()
	r.track(ctx, domain.StateAccountCreated, wialon.SvcCreateResource, res.ID(), reused)
	return res.ID(), nil
}

func (r *run) assignPlan(ctx context.Context, s *wialon.Session) (int64, error) {
	if r.resource.IsAccount() {
		acct, err := items.GetAccount(ctx, s, r.resource.ID())
		if err != nil {
			return 0, err
		}
		r.account = acct
		r.res.Plan = acct.Plan()
		r.track(ctx, domain.StateAccountPlanAssigned, wialon.SvcCreateAccount, acct.ID(), true)
		return acct.ID(), nil
	}
	acct, err := r.resource.PromoteToAccount(ctx, s, r.decision.Plan)
	if wialon.IsAlreadyExists(err) || errors.Is(err, wialon.ErrUnknownOutcome) {
		log.Printf("provision: promote resource %d: %v; re-reading", r.resource.ID(), err)
		acct, err = items.GetAccount(ctx, s, r.resource.ID())
	}
	if err != nil {
		return 0, err
	}
	r.account = acct
	r.res.Plan = acct.Plan()
	r.track(ctx, domain.StateAccountPlanAssigned, wialon.SvcCreateAccount, acct.ID(), false)
	return acct.ID(), nil
}

func (r *run) createEndUser(ctx context.Context, s *wialon.Session) (int64, error) {
	name := r.req.EndUserName()
	u, reused, err := ensure(ctx, s, wialon.ItemTypeUser, name, r.superUser.ID(),
		func() (*items.User, error) { return items.CreateUser(ctx, s, r.superUser.ID(), name, r.req.Password) },
		func(id int64) (*items.User, error) { return items.GetUser(ctx, s, id) })
	if err != nil {
		return 0, err
	}
	r.endUser = u
	r.res.EndUserID = u.ID()
	r.track(ctx, domain.StateEndUserCreated, wialon.SvcCreateUser, u.ID(), reused)
	return u.ID(), nil
}

func (r *run) grantAccess(ctx context.Context, s *wialon.Session) (int64, error) {
	mask := r.decision.AccountMask()
	if err := access.Grant(ctx, s, r.endUser, r.account, mask); err != nil {
		return 0, err
	}
	r.audit(ctx, wialon.SvcUpdateItemAccess, r.account.ID(), fmt.Sprintf(`{"userId":%d,"mask":%q}`, r.endUser.ID(), mask))
	return r.account.ID(), nil
}

func (r *run) enableAccount(ctx context.Context, s *wialon.Session) (int64, error) {
	if err := r.account.Enable(ctx, s); err != nil {
		return 0, err
	}
	r.audit(ctx, wialon.SvcEnableAccount, r.account.ID(), `{"enable":true}`)
	return r.account.ID(), nil
}

// disableAccount leaves the account switched off until billing confirms the subscription.
func (r *run) disableAccount(ctx context.Context, s *wialon.Session) (int64, error) {
	if err := r.account.Disable(ctx, s); err != nil {
		return 0, err
	}
	r.audit(ctx, wialon.SvcEnableAccount, r.account.ID(), `{"enable":false}`)
	return r.account.ID(), nil
}

func (r *run) attachUnits(ctx context.Context, s *wialon.Session) (int64, error) {
	mask := r.decision.UnitMask()
	for _, externalID := range r.req.UnitExternalIDs {
		u, err := items.ResolveUnit(ctx, s, externalID)
		if err != nil {
			return 0, fmt.Errorf("unit %s: %w", externalID, err)
		}
		if u.AccountID() != r.account.ID() {
			if err := u.MigrateTo(ctx, s, r.account); err != nil {
				return 0, fmt.Errorf("unit %s: %w", externalID, err)
			}
			r.audit(ctx, wialon.SvcChangeAccount, u.ID(), fmt.Sprintf(`{"accountId":%d}`, r.account.ID()))
		}
		if err := access.Grant(ctx, s, r.endUser, u, mask); err != nil {
			return 0, fmt.Errorf("unit %s: %w", externalID, err)
		}
		r.audit(ctx, wialon.SvcUpdateItemAccess, u.ID(), fmt.Sprintf(`{"userId":%d,"mask":%q}`, r.endUser.ID(), mask))
		r.res.UnitIDs = append(r.res.UnitIDs, u.ID())
	}
	return r.account.ID(), nil
}

func (r *run) record(ctx context.Context, _ *wialon.Session) (int64, error) {
	if r.p.recorder == nil {
		return r.account.ID(), nil
	}
	now := r.p.now()
	c := &customerdomain.Customer{
		ID:            r.req.CustomerID,
		SuperUserID:   r.res.SuperUserID,
		EndUserID:     r.res.EndUserID,
		AccountID:     r.res.AccountID,
		Plan:          r.res.Plan,
		ProvisionedAt: &now,
	}
	for i, id := range r.res.UnitIDs {
		c.Units = append(c.Units, customerdomain.Unit{UnitID: id, ExternalID: r.req.UnitExternalIDs[i]})
	}
	if err := r.p.recorder.RecordProvisioning(ctx, c); err != nil {
		return 0, fmt.Errorf("record customer: %w", err)
	}
	return r.account.ID(), nil
}

// track audits a create step, or records that an existing item was adopted.
func (r *run) track(ctx context.Context, state domain.State, svc string, itemID int64, reused bool) {
	if !reused {
		r.audit(ctx, svc, itemID, "")
		return
	}
	r.res.Reused = append(r.res.Reused, state)
	log.Printf("provision: customer %s reusing %s item %d", r.req.CustomerID, state, itemID)
	if r.p.audit != nil {
		ar := audit.ActionForService(svc)
		r.p.audit.LogEvent(ctx, r.req.CustomerID, "reuse", ar.Resource, itemID, "")
	}
}

func (r *run) audit(ctx context.Context, svc string, itemID int64, metadata string) {
	if r.p.audit == nil {
		return
	}
	ar := audit.ActionForService(svc)
	r.p.audit.LogEvent(ctx, r.req.CustomerID, ar.Action, ar.Resource, itemID, metadata)
}

// ensure returns the item of kind named name, creating it when absent. An existing item is adopted
// only when creatorID created it. When create reports the name is taken, or its outcome is unknown,
// the name is resolved again instead of retrying the create.
func ensure[T items.Object](ctx context.Context, s *wialon.Session, kind wialon.ItemType, name string, creatorID int64,
	create func() (T, error), get func(id int64) (T, error)) (T, bool, error) {
	var zero T
	item, found, err := adopt(ctx, s, kind, name, creatorID, get)
	if err != nil || found {
		return item, found, err
	}
	item, err = create()
	if err == nil {
		return item, false, nil
	}
	if !wialon.IsAlreadyExists(err) && !errors.Is(err, wialon.ErrUnknownOutcome) {
		return zero, false, err
	}
	log.Printf("provision: create %s %q: %v; resolving by name", kind, name, err)
	item, found, rerr := adopt(ctx, s, kind, name, creatorID, get)
	if rerr != nil {
		return zero, false, rerr
	}
	if !found {
		return zero, false, err
	}
	// The item is ours: a lost response or a concurrent run of the same workflow created it.
	return item, false, nil
}

func adopt[T items.Object](ctx context.Context, s *wialon.Session, kind wialon.ItemType, name string, creatorID int64,
	get func(id int64) (T, error)) (T, bool, error) {
	var zero T
	ref, err := lookup.FindByName(ctx, s, kind, name)
	if wialon.IsNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	if ref.Item.CreatorID != creatorID {
		return zero, false, fmt.Errorf("%w: %s %q (#%d) created by %d, want %d",
			ErrForeignItem, kind, name, ref.ID(), ref.Item.CreatorID, creatorID)
	}
	item, err := get(ref.ID())
	if err != nil {
		return zero, false, err
	}
	return item, true, nil
}
