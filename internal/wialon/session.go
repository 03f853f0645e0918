package wialon

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Session is an authenticated Remote API session. It is opened by Client.Open and must be closed with
// Close; after Close every Call fails locally with an AuthenticationError wrapping ErrSessionClosed.
type Session struct {
	client *Client
	id     string
	user   Item

	mu     sync.Mutex
	closed bool
}

// Open logs in with token and returns a live session.
func (c *Client) Open(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, &AuthenticationError{Reason: "token is required"}
	}
	var res LoginResult
	err := c.do(ctx, "", SvcTokenLogin, TokenLoginParams{Token: token, Flags: loginFlags}, &res)
	if err != nil {
		var apiErr *RemoteAPIError
		if errors.As(err, &apiErr) {
			return nil, &AuthenticationError{Reason: "token rejected", Err: err}
		}
		return nil, &AuthenticationError{Reason: "login failed", Err: err}
	}
	if res.SessionID == "" {
		return nil, &AuthenticationError{Reason: "login response carried no session id"}
	}
	return &Session{client: c, id: res.SessionID, user: res.User}, nil
}

// ID returns the remote session id.
func (s *Session) ID() string { return s.id }

// User returns the item of the user the session is logged in as.
func (s *Session) User() Item { return s.user }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Call invokes svc with params and decodes the result into out (which may be nil).
func (s *Session) Call(ctx context.Context, svc string, params, out any) error {
	if s == nil {
		return &AuthenticationError{Reason: "no session", Err: ErrSessionClosed}
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return &AuthenticationError{Reason: "call on closed session", Err: ErrSessionClosed}
	}
	err := s.client.do(ctx, s.id, svc, params, out)
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) && apiErr.Code == CodeInvalidSession {
		return &AuthenticationError{Reason: "session expired or invalid", Err: err}
	}
	return err
}

// Close logs the session out. Calling Close more than once is a no-op.
// The session counts as closed even when the logout call fails.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.client.do(ctx, s.id, SvcLogout, nil, nil)
}

// WithSession opens a session, runs fn, and always closes the session. fn's error is returned
// unchanged. A logout failure is only logged: the session is closed locally either way.
func WithSession(ctx context.Context, c *Client, token string, fn func(ctx context.Context, s *Session) error) error {
	s, err := c.Open(ctx, token)
	if err != nil {
		return err
	}
	defer func() {
		// Logout runs even when ctx was cancelled.
		if cerr := s.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Printf("wialon: logout of session %s failed: %v", s.id, cerr)
		}
	}()
	return fn(ctx, s)
}
