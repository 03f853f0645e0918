package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"fleet-provisioning/internal/audit"
	"fleet-provisioning/internal/provisioning/domain"
	"fleet-provisioning/internal/wialon"
	"fleet-provisioning/internal/wialon/items"
	"fleet-provisioning/internal/wialon/lookup"
)

func createCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	customer := fs.String("customer", "", "customer identifier; also the end-user login")
	password := fs.String("password", "", "end-user password (PROVISION_PASSWORD)")
	tier := fs.String("tier", "", "policy tier, e.g. fleet")
	units := fs.StringSlice("unit", nil, "IMEI of an existing unit to attach (repeatable)")
	return func(ctx context.Context, a *app) error {
		if *password == "" {
			*password = os.Getenv("PROVISION_PASSWORD")
		}
		res, err := a.provisioner().Provision(ctx, domain.Request{
			CustomerID:      *customer,
			Password:        *password,
			Tier:            *tier,
			UnitExternalIDs: *units,
		})
		if res != nil {
			printResult(res)
		}
		return err
	}
}

func printResult(res *domain.Result) {
	fmt.Printf("run:        %s\n", res.RunID)
	fmt.Printf("customer:   %s\n", res.CustomerID)
	fmt.Printf("state:      %s\n", res.State)
	fmt.Printf("plan:       %s\n", res.Plan)
	fmt.Printf("super-user: %d\n", res.SuperUserID)
	fmt.Printf("account:    %d\n", res.AccountID)
	fmt.Printf("end-user:   %d\n", res.EndUserID)
	if len(res.UnitIDs) > 0 {
		fmt.Printf("units:      %v\n", res.UnitIDs)
	}
	if len(res.Reused) > 0 {
		fmt.Printf("reused:     %v\n", res.Reused)
	}
}

func showCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	customer := fs.String("customer", "", "customer identifier")
	limit := fs.Int32("limit", 20, "audit entries to print")
	return func(ctx context.Context, a *app) error {
		if a.customers == nil {
			return errors.New("show needs DATABASE_URL")
		}
		c, err := a.customers.GetByID(ctx, *customer)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("customer %q not found", *customer)
		}
		fmt.Printf("customer:   %s\n", c.ID)
		fmt.Printf("plan:       %s\n", c.Plan)
		fmt.Printf("super-user: %d\n", c.SuperUserID)
		fmt.Printf("account:    %d\n", c.AccountID)
		fmt.Printf("end-user:   %d\n", c.EndUserID)
		for _, u := range c.Units {
			fmt.Printf("unit:       %d (%s)\n", u.UnitID, u.ExternalID)
		}
		if c.ProvisionedAt != nil {
			fmt.Printf("provisioned %s\n", c.ProvisionedAt.Format("2006-01-02 15:04:05Z07:00"))
		}
		logs, err := a.auditRepo.ListByCustomer(ctx, c.ID, *limit, 0)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		for _, l := range logs {
			fmt.Printf("%s  %-8s %-18s %-12s #%d\n", l.CreatedAt.Format("2006-01-02 15:04:05"), l.RunID[:min(8, len(l.RunID))], l.Action, l.Resource, l.ItemID)
		}
		return nil
	}
}

// operate runs fn in its own session with a fresh run id for the audit trail.
func operate(ctx context.Context, a *app, fn func(ctx context.Context, s *wialon.Session) error) error {
	ctx = audit.WithRunID(ctx, uuid.NewString())
	return wialon.WithSession(ctx, a.client, a.cfg.WialonToken, fn)
}

func (a *app) logEvent(ctx context.Context, svc string, itemID int64, metadata string) {
	l := a.auditLogger()
	if l == nil {
		return
	}
	ar := audit.ActionForService(svc)
	l.LogEvent(ctx, audit.SentinelCustomerID, ar.Action, ar.Resource, itemID, metadata)
}

func migrateUnitCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	imei := fs.String("unit", "", "IMEI of the unit")
	accountID := fs.Int64("account", 0, "target account id")
	return func(ctx context.Context, a *app) error {
		return operate(ctx, a, func(ctx context.Context, s *wialon.Session) error {
			u, err := items.ResolveUnit(ctx, s, *imei)
			if err != nil {
				return err
			}
			acct, err := items.GetAccount(ctx, s, *accountID)
			if err != nil {
				return err
			}
			if err := acct.MigrateUnit(ctx, s, u); err != nil {
				return err
			}
			a.logEvent(ctx, wialon.SvcChangeAccount, u.ID(), fmt.Sprintf(`{"accountId":%d}`, acct.ID()))
			fmt.Printf("unit %d (%s) now in account %d\n", u.ID(), u.ExternalID(), u.AccountID())
			return nil
		})
	}
}

func groupCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	groupID := fs.Int64("group", 0, "unit group id")
	imei := fs.String("unit", "", "IMEI of the unit")
	return func(ctx context.Context, a *app) error {
		op := fs.Arg(0)
		if op != "add" && op != "remove" {
			return fmt.Errorf("group: want add or remove, got %q", op)
		}
		return operate(ctx, a, func(ctx context.Context, s *wialon.Session) error {
			g, err := items.GetUnitGroup(ctx, s, *groupID)
			if err != nil {
				return err
			}
			u, err := items.ResolveUnit(ctx, s, *imei)
			if err != nil {
				return err
			}
			if op == "add" {
				err = g.AddMember(ctx, s, u)
			} else {
				err = g.RemoveMember(ctx, s, u)
			}
			if err != nil {
				return err
			}
			a.logEvent(ctx, wialon.SvcUpdateGroupUnits, g.ID(), fmt.Sprintf(`{"op":%q,"unitId":%d}`, op, u.ID()))
			members, err := g.Members(ctx, s)
			if err != nil {
				return err
			}
			fmt.Printf("group %d members: %v\n", g.ID(), members)
			return nil
		})
	}
}

func addDaysCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	accountID := fs.Int64("account", 0, "account id")
	days := fs.Int("days", 0, "days to add")
	return func(ctx context.Context, a *app) error {
		return operate(ctx, a, func(ctx context.Context, s *wialon.Session) error {
			acct, err := items.GetAccount(ctx, s, *accountID)
			if err != nil {
				return err
			}
			if err := acct.AddDays(ctx, s, *days); err != nil {
				return err
			}
			a.logEvent(ctx, wialon.SvcDoPayment, acct.ID(), fmt.Sprintf(`{"days":%d}`, *days))
			fmt.Printf("account %d: %d days remaining\n", acct.ID(), acct.Days())
			return nil
		})
	}
}

var itemKinds = map[string]wialon.ItemType{
	"user":       wialon.ItemTypeUser,
	"resource":   wialon.ItemTypeResource,
	"account":    wialon.ItemTypeResource,
	"unit":       wialon.ItemTypeUnit,
	"unit_group": wialon.ItemTypeUnitGroup,
}

func checkNameCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	kind := fs.String("kind", "user", "user, resource, account, unit or unit_group")
	name := fs.String("name", "", "name to check")
	return func(ctx context.Context, a *app) error {
		t, ok := itemKinds[strings.ToLower(*kind)]
		if !ok {
			return fmt.Errorf("unknown kind %q", *kind)
		}
		return operate(ctx, a, func(ctx context.Context, s *wialon.Session) error {
			free, err := lookup.NameIsUnique(ctx, s, *name, t)
			if err != nil {
				return err
			}
			if !free {
				fmt.Printf("%s %q is taken\n", *kind, *name)
				return exitError(1)
			}
			fmt.Printf("%s %q is free\n", *kind, *name)
			return nil
		})
	}
}

func healthCmd(_ *pflag.FlagSet) func(ctx context.Context, a *app) error {
	return func(ctx context.Context, a *app) error {
		r := a.checker().Check(ctx)
		for _, c := range r.Checks {
			switch {
			case c.Skipped:
				fmt.Printf("%-9s skipped\n", c.Name)
			case c.Err != nil:
				fmt.Printf("%-9s FAIL %v\n", c.Name, c.Err)
			default:
				fmt.Printf("%-9s ok (%s)\n", c.Name, c.Elapsed.Round(time.Millisecond))
			}
		}
		if !r.Healthy() {
			return exitError(1)
		}
		return nil
	}
}

func renameCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	kind := fs.String("kind", "unit", "user, resource, account, unit or unit_group")
	id := fs.Int64("id", 0, "item id")
	name := fs.String("name", "", "new name")
	return func(ctx context.Context, a *app) error {
		t, ok := itemKinds[strings.ToLower(*kind)]
		if !ok {
			return fmt.Errorf("unknown kind %q", *kind)
		}
		return operate(ctx, a, func(ctx context.Context, s *wialon.Session) error {
			obj, err := items.Load(ctx, s, t, *id)
			if err != nil {
				return err
			}
			r, ok := obj.(interface {
				Rename(ctx context.Context, s *wialon.Session, name string) error
			})
			if !ok {
				return fmt.Errorf("%s cannot be renamed", obj.Kind())
			}
			old := obj.Name()
			if err := r.Rename(ctx, s, *name); err != nil {
				return err
			}
			a.logEvent(ctx, wialon.SvcUpdateName, obj.ID(), fmt.Sprintf(`{"from":%q,"to":%q}`, old, obj.Name()))
			fmt.Printf("%s %d renamed %q -> %q\n", obj.Kind(), obj.ID(), old, obj.Name())
			return nil
		})
	}
}
