package restclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token() (string, error) { return s.token, s.err }

func TestClient_Do(t *testing.T) {
	ctx := context.Background()

	// --- Test 1: Bearer header, JSON body and data decoding ---
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer abc" {
				t.Errorf("Expected bearer header, got %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Expected JSON content type, got %q", got)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["course"] != "CSE101" {
				t.Errorf("Unexpected body %v", body)
			}
			if r.URL.Query().Get("department_id") != "" {
				t.Errorf("Unexpected query %v", r.URL.RawQuery)
			}
			w.Write([]byte(`{"success":true,"message":"ok","data":{"studentId":"S1"}}`))
		}))
		defer server.Close()

		c := New(server.URL+"/", WithTokenSource(staticToken{token: "abc"}))
		var out struct {
			StudentID string `json:"studentId"`
		}
		resp, err := c.Post(ctx, "/api/students/S1/course", map[string]string{"course": "CSE101"}, &out)
		if err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		if out.StudentID != "S1" || resp.Message != "ok" || !resp.Success {
			t.Errorf("Unexpected decode: %+v %+v", out, resp)
		}
	})

	// --- Test 2: Non-2xx carries the server message ---
	t.Run("API Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"success":false,"message":"Result already exists"}`))
		}))
		defer server.Close()

		_, err := New(server.URL).Get(ctx, "/api/results", nil, nil)
		if !IsStatus(err, http.StatusConflict) {
			t.Fatalf("Expected 409, got %v", err)
		}
		if msg, ok := ServerMessage(err); !ok || msg != "Result already exists" {
			t.Errorf("Unexpected server message %q", msg)
		}
	})

	// --- Test 3: Non-JSON error bodies fall back to status text ---
	t.Run("API Error Without Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gateway down", http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := New(server.URL).Get(ctx, "/api/results", nil, nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "" {
			t.Fatalf("Expected APIError without message, got %v", err)
		}
		if _, ok := ServerMessage(err); ok {
			t.Error("Expected no server message")
		}
	})

	// --- Test 4: Connection failures are transport errors ---
	t.Run("Transport Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := New(url).Get(ctx, "/api/results", nil, nil)
		var terr *TransportError
		if !errors.As(err, &terr) {
			t.Errorf("Expected TransportError, got %v", err)
		}
	})

	// --- Test 5: A failing token source sends nothing ---
	t.Run("Token Error", func(t *testing.T) {
		hits := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
		defer server.Close()

		sentinel := errors.New("logged out")
		_, err := New(server.URL, WithTokenSource(staticToken{err: sentinel})).Get(ctx, "/api/results", nil, nil)
		if !errors.Is(err, sentinel) || hits != 0 {
			t.Errorf("Expected sentinel and no request, got %v (%d hits)", err, hits)
		}
	})

	// --- Test 6: Per-request timeout ---
	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		_, err := New(server.URL, WithTimeout(20*time.Millisecond)).Get(ctx, "/slow", nil, nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
	})
}

func TestResponse_DecodeKey(t *testing.T) {
	resp := &Response{Body: []byte(`{"success":true,"notices":[{"title":"a"}]}`)}
	var out []struct {
		Title string `json:"title"`
	}
	if err := resp.DecodeKey("notices", &out); err != nil {
		t.Fatalf("DecodeKey failed: %v", err)
	}
	if len(out) != 1 || out[0].Title != "a" {
		t.Errorf("Unexpected %+v", out)
	}
}

func TestPathEscape(t *testing.T) {
	if got := PathEscape("/api/results", "S1", "CSE 101"); got != "/api/results/S1/CSE%20101" {
		t.Errorf("Unexpected path %q", got)
	}
}
