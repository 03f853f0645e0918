package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %q, want /loki/api/v1/push", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewClient_EmptyURL(t *testing.T) {
	if _, err := NewClient("  ", nil); err == nil {
		t.Error("NewClient with empty URL should return error")
	}
}

func TestPushEventJSON_Labels(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c, err := NewClient(srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := []byte(`{"customerId":"alice","eventType":"provisioning.failed","source":"provisioner","step":"Account Plan Assigned","createdAt":"2026-03-01T12:00:00Z"}`)

	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	s := got.Streams[0]
	want := map[string]string{
		"job":        Job,
		"event_type": "provisioning.failed",
		"source":     "provisioner",
		"step":       "Account_Plan_Assigned",
	}
	for k, v := range want {
		if s.Stream[k] != v {
			t.Errorf("label %s = %q, want %q", k, s.Stream[k], v)
		}
	}
	if len(s.Values) != 1 {
		t.Fatalf("values = %d, want 1", len(s.Values))
	}
	if s.Values[0][0] != strconv.FormatInt(created.UnixNano(), 10) {
		t.Errorf("timestamp = %s, want %d", s.Values[0][0], created.UnixNano())
	}
	if s.Values[0][1] != string(raw) {
		t.Errorf("line = %q, want raw event", s.Values[0][1])
	}
}

func TestPushEventJSON_InvalidJSON(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c, _ := NewClient(srv.URL, nil)

	if err := c.PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	s := got.Streams[0]
	if len(s.Stream) != 1 || s.Stream["job"] != Job {
		t.Errorf("labels = %v, want only job", s.Stream)
	}
	if s.Values[0][1] != "not json" {
		t.Errorf("line = %q, want raw input", s.Values[0][1])
	}
}

func TestPush_Non2xx(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	c, _ := NewClient(srv.URL, nil)
	if err := c.Push(context.Background(), time.Now(), "line", nil); err == nil {
		t.Error("Push should fail on 400")
	}
}
