package health

import (
	"context"
	"errors"
	"testing"

	"fleet-provisioning/internal/wialon"
	"fleet-provisioning/internal/wialon/wialontest"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck_NothingConfigured(t *testing.T) {
	r := (&Checker{}).Check(context.Background())
	if !r.Healthy() {
		t.Error("Healthy = false, want true with every check skipped")
	}
	for _, c := range r.Checks {
		if !c.Skipped {
			t.Errorf("check %s not skipped", c.Name)
		}
	}
}

func TestCheck_PingerFailure(t *testing.T) {
	r := (&Checker{DB: &mockPinger{pingErr: errors.New("connection refused")}}).Check(context.Background())
	if r.Healthy() {
		t.Fatal("Healthy = true, want false on ping failure")
	}
	if r.Checks[0].Name != "database" || r.Checks[0].Err == nil {
		t.Errorf("database check = %+v, want error", r.Checks[0])
	}
}

func TestCheck_PolicyFailure(t *testing.T) {
	r := (&Checker{DB: &mockPinger{}, Policy: &mockPolicyChecker{healthErr: errors.New("not compiled")}}).Check(context.Background())
	if r.Healthy() {
		t.Fatal("Healthy = true, want false on policy failure")
	}
	if r.Checks[0].Err != nil {
		t.Errorf("database check err = %v, want nil", r.Checks[0].Err)
	}
}

func TestCheck_Remote(t *testing.T) {
	srv := wialontest.NewServer(t)
	c := &Checker{Remote: srv.Client(), Token: wialontest.Token}
	if r := c.Check(context.Background()); !r.Healthy() {
		t.Errorf("Healthy = false: %+v", r.Checks)
	}
	if n := srv.OpenSessions(); n != 0 {
		t.Errorf("OpenSessions = %d, want 0", n)
	}

	c.Token = "wrong"
	r := c.Check(context.Background())
	if r.Healthy() {
		t.Fatal("Healthy = true with a rejected token")
	}
	if !wialon.IsAuthentication(r.Checks[2].Err) {
		t.Errorf("wialon check err = %v, want authentication error", r.Checks[2].Err)
	}
}
