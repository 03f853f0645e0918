package wialon_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"fleet-provisioning/internal/wialon"
	"fleet-provisioning/internal/wialon/wialontest"
)

func TestOpen_EmptyTokenMakesNoCall(t *testing.T) {
	srv := wialontest.NewServer(t)
	_, err := srv.Client().Open(context.Background(), "")
	if !wialon.IsAuthentication(err) {
		t.Fatalf("Open(\"\") err = %v, want AuthenticationError", err)
	}
	if n := len(srv.Calls()); n != 0 {
		t.Errorf("remote calls = %d, want 0", n)
	}
}

func TestOpen_RejectedToken(t *testing.T) {
	srv := wialontest.NewServer(t)
	_, err := srv.Client().Open(context.Background(), "wrong")
	if !wialon.IsAuthentication(err) {
		t.Fatalf("err = %v, want AuthenticationError", err)
	}
	var apiErr *wialon.RemoteAPIError
	if !errors.As(err, &apiErr) || apiErr.Code != wialon.CodeInvalidCredentials {
		t.Errorf("wrapped err = %v, want code %d", err, wialon.CodeInvalidCredentials)
	}
}

func TestOpen_TransportFailureIsAuthentication(t *testing.T) {
	srv := wialontest.NewServer(t)
	client := srv.Client()
	srv.Close()

	s, err := client.Open(context.Background(), wialontest.Token)
	if !wialon.IsAuthentication(err) {
		t.Fatalf("Open on closed server err = %v (%T), want AuthenticationError", err, err)
	}
	if s != nil {
		t.Error("Open returned a session on failure")
	}
}

func TestOpen_TimeoutIsAuthenticationWithUnknownOutcome(t *testing.T) {
	srv := wialontest.NewServer(t)
	srv.Delay(wialon.SvcTokenLogin, time.Second)
	client := srv.Client(wialon.WithTimeout(100 * time.Millisecond))

	_, err := client.Open(context.Background(), wialontest.Token)
	if !wialon.IsAuthentication(err) {
		t.Fatalf("err = %v, want AuthenticationError", err)
	}
	if !errors.Is(err, wialon.ErrUnknownOutcome) {
		t.Errorf("err = %v, want ErrUnknownOutcome in chain", err)
	}
}

func TestOpen_ReturnsSession(t *testing.T) {
	srv := wialontest.NewServer(t)
	s, err := srv.Client().Open(context.Background(), wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.ID() == "" {
		t.Error("session id is empty")
	}
	if s.User().ID != wialontest.AdminID {
		t.Errorf("User().ID = %d, want %d", s.User().ID, wialontest.AdminID)
	}
	if s.Closed() {
		t.Error("new session reports closed")
	}
}

func TestCall_AfterCloseFailsLocally(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	s, err := srv.Client().Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	before := len(srv.Calls())

	err = s.Call(ctx, wialon.SvcCheckUnique, wialon.CheckUniqueParams{Type: wialon.ItemTypeUser, Value: "x"}, nil)
	if !errors.Is(err, wialon.ErrSessionClosed) {
		t.Errorf("err = %v, want ErrSessionClosed", err)
	}
	if !wialon.IsAuthentication(err) {
		t.Errorf("err = %v, want AuthenticationError", err)
	}
	if after := len(srv.Calls()); after != before {
		t.Errorf("remote calls after close = %d, want %d", after, before)
	}
}

func TestClose_Idempotent(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	s, err := srv.Client().Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Close(ctx); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}
	if n := len(srv.CallsTo(wialon.SvcLogout)); n != 1 {
		t.Errorf("logout calls = %d, want 1", n)
	}
	if srv.OpenSessions() != 0 {
		t.Errorf("open sessions = %d, want 0", srv.OpenSessions())
	}
}

func TestClose_FailureStillClosesLocally(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	s, err := srv.Client().Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	srv.FailNext(wialon.SvcLogout, wialon.CodeUnknown)
	if err := s.Close(ctx); err == nil {
		t.Fatal("Close: want error")
	}
	if !s.Closed() {
		t.Error("session not marked closed after failed logout")
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestCall_RemoteError(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	s, err := srv.Client().Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(ctx)

	srv.FailNext(wialon.SvcCheckUnique, wialon.CodeAccessDenied)
	err = s.Call(ctx, wialon.SvcCheckUnique, wialon.CheckUniqueParams{Type: wialon.ItemTypeUser, Value: "someone"}, nil)
	var apiErr *wialon.RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want RemoteAPIError", err)
	}
	if apiErr.Code != wialon.CodeAccessDenied || apiErr.Service != wialon.SvcCheckUnique {
		t.Errorf("RemoteAPIError = %+v", apiErr)
	}
}

func TestCall_InvalidSessionIsAuthentication(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	s, err := srv.Client().Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(ctx)
	srv.FailNext(wialon.SvcSearchItem, wialon.CodeInvalidSession)
	err = s.Call(ctx, wialon.SvcSearchItem, wialon.SearchItemParams{ID: wialontest.AdminID, Flags: wialon.DataFlagBase}, nil)
	if !wialon.IsAuthentication(err) {
		t.Errorf("err = %v, want AuthenticationError", err)
	}
}

func TestCall_SendsSID(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	s, err := srv.Client().Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(ctx)
	var out wialon.ItemResult
	if err := s.Call(ctx, wialon.SvcSearchItem, wialon.SearchItemParams{ID: wialontest.AdminID, Flags: wialon.DataFlagBase}, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.Item.Name != wialontest.AdminName {
		t.Errorf("Item.Name = %q, want %q", out.Item.Name, wialontest.AdminName)
	}
	calls := srv.CallsTo(wialon.SvcSearchItem)
	if len(calls) != 1 || calls[0].SID != s.ID() {
		t.Errorf("calls = %+v, want one carrying sid %q", calls, s.ID())
	}
}

func TestCall_TimeoutIsUnknownOutcome(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	c := srv.Client(wialon.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	s, err := c.Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(ctx)

	srv.Delay(wialon.SvcCreateUser, time.Second)
	err = s.Call(ctx, wialon.SvcCreateUser, wialon.CreateUserParams{CreatorID: wialontest.AdminID, Name: "slow_user", Password: "pw"}, nil)
	if !errors.Is(err, wialon.ErrUnknownOutcome) {
		t.Fatalf("err = %v, want ErrUnknownOutcome", err)
	}
	// The server applied the call even though the client gave up.
	if _, ok := srv.FindObject(wialon.ItemTypeUser, "slow_user"); !ok {
		t.Error("user not created server-side")
	}
}

func TestWithSession_ClosesAndReturnsFnError(t *testing.T) {
	srv := wialontest.NewServer(t)
	want := errors.New("boom")
	err := wialon.WithSession(context.Background(), srv.Client(), wialontest.Token, func(ctx context.Context, s *wialon.Session) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if srv.OpenSessions() != 0 {
		t.Errorf("open sessions = %d, want 0", srv.OpenSessions())
	}
}

func TestWithSession_LogoutFailure(t *testing.T) {
	t.Run("fn error wins", func(t *testing.T) {
		srv := wialontest.NewServer(t)
		srv.FailNext(wialon.SvcLogout, wialon.CodeUnknown)
		want := errors.New("boom")
		err := wialon.WithSession(context.Background(), srv.Client(), wialontest.Token, func(context.Context, *wialon.Session) error {
			return want
		})
		if !errors.Is(err, want) {
			t.Errorf("err = %v, want %v", err, want)
		}
	})
	t.Run("logout error only logged", func(t *testing.T) {
		srv := wialontest.NewServer(t)
		srv.FailNext(wialon.SvcLogout, wialon.CodeUnknown)
		var session *wialon.Session
		err := wialon.WithSession(context.Background(), srv.Client(), wialontest.Token, func(_ context.Context, s *wialon.Session) error {
			session = s
			return nil
		})
		if err != nil {
			t.Errorf("err = %v, want nil", err)
		}
		if !session.Closed() {
			t.Error("session not closed locally after failed logout")
		}
		if n := len(srv.CallsTo(wialon.SvcLogout)); n != 1 {
			t.Errorf("logout calls = %d, want 1", n)
		}
	})
}

func TestWithSession_OpenFailureSkipsFn(t *testing.T) {
	srv := wialontest.NewServer(t)
	called := false
	err := wialon.WithSession(context.Background(), srv.Client(), "bad", func(context.Context, *wialon.Session) error {
		called = true
		return nil
	})
	if !wialon.IsAuthentication(err) {
		t.Errorf("err = %v, want AuthenticationError", err)
	}
	if called {
		t.Error("fn ran without a session")
	}
}

func TestWithRateLimit_Waits(t *testing.T) {
	srv := wialontest.NewServer(t)
	ctx := context.Background()
	c := srv.Client(wialon.WithRateLimit(20, 1))
	start := time.Now()
	s, err := c.Open(ctx, wialontest.Token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Call(ctx, wialon.SvcCheckUnique, wialon.CheckUniqueParams{Type: wialon.ItemTypeUser, Value: "nobody"}, nil); err != nil {
			t.Fatalf("Call: %v", err)
		}
	}
	// Four calls at 20/s with burst 1 need at least three 50ms intervals.
	if elapsed := time.Since(start); elapsed < 140*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 140ms", elapsed)
	}
	_ = s.Close(ctx)
}
