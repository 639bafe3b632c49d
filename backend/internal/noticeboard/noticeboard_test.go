package noticeboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/session"
	"uniportal/backend/internal/shared"
)

type fakePortal struct {
	mu      sync.Mutex
	notices []shared.Notice
	posts   int
	deletes int
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "notices": p.notices})
	case r.Method == http.MethodPost:
		p.posts++
		var n shared.Notice
		json.NewDecoder(r.Body).Decode(&n)
		n.ID = "n" + string(rune('0'+len(p.notices)))
		n.CreatedAt = time.Now()
		p.notices = append(p.notices, n)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "Notice added successfully", "data": n})
	case r.Method == http.MethodDelete:
		p.deletes++
		id := strings.TrimPrefix(r.URL.Path, "/api/notices/")
		for i, n := range p.notices {
			if n.ID == id {
				p.notices = append(p.notices[:i], p.notices[i+1:]...)
				json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "Notice deleted successfully"})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "Notice not found"})
	}
}

func setupBoard(t *testing.T, answer bool) (*Board, *fakePortal) {
	t.Helper()

	portal := &fakePortal{notices: []shared.Notice{
		{ID: "n0", Title: "Orientation", Description: "Monday 9am", CreatedAt: time.Now().Add(-time.Hour)},
	}}
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)

	sess, err := session.New("test-token", shared.RoleAdmin, session.User{ID: "admin1"})
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	confirm := reconcile.ConfirmFunc(func(context.Context, string) bool { return answer })
	b, err := New(sess, restclient.New(server.URL), confirm, reconcile.WithMinFlagDuration(0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return b, portal
}

func TestBoard_Load(t *testing.T) {
	b, _ := setupBoard(t, true)

	notices := b.Notices()
	if len(notices) != 1 || notices[0].Title != "Orientation" {
		t.Errorf("Expected one notice from the notices key, got %+v", notices)
	}
}

func TestBoard_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Description", func(t *testing.T) {
		b, portal := setupBoard(t, true)

		b.SetDraft(FieldTitle, "Exam week")
		b.SetDraft(FieldDescription, "  ")
		if _, err := b.Publish(ctx); reconcile.UserMessage(err, "") != "Description is required." {
			t.Errorf("Expected description error, got %v", err)
		}
		if portal.posts != 0 {
			t.Error("Expected no POST")
		}
		if b.Draft().Title != "Exam week" {
			t.Error("Expected draft kept")
		}
	})

	t.Run("Success", func(t *testing.T) {
		b, portal := setupBoard(t, true)

		b.SetDraft(FieldTitle, " Exam week ")
		b.SetDraft(FieldDescription, "Starts on the 12th")
		msg, err := b.Publish(ctx)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if msg != "Notice added successfully" || portal.posts != 1 {
			t.Errorf("Unexpected message %q or posts %d", msg, portal.posts)
		}
		if d := b.Draft(); d.Title != "" || d.Description != "" {
			t.Errorf("Expected draft cleared, got %+v", d)
		}
		notices := b.Notices()
		if len(notices) != 2 || notices[0].Title != "Exam week" {
			t.Errorf("Expected new trimmed notice first, got %+v", notices)
		}
	})

	t.Run("Unknown Field", func(t *testing.T) {
		b, _ := setupBoard(t, true)
		if err := b.SetDraft("author", "x"); err == nil {
			t.Error("Expected error for unknown field")
		}
	})
}

func TestBoard_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Declined", func(t *testing.T) {
		b, portal := setupBoard(t, false)
		if _, err := b.Delete(ctx, "n0"); !errors.Is(err, reconcile.ErrCancelled) {
			t.Errorf("Expected ErrCancelled, got %v", err)
		}
		if portal.deletes != 0 {
			t.Error("Expected no DELETE")
		}
	})

	t.Run("Confirmed", func(t *testing.T) {
		b, _ := setupBoard(t, true)
		msg, err := b.Delete(ctx, "n0")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if msg != "Notice deleted successfully" || len(b.Notices()) != 0 {
			t.Errorf("Unexpected message %q or notices %+v", msg, b.Notices())
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		b, _ := setupBoard(t, true)
		_, err := b.Delete(ctx, "missing")
		if msg := reconcile.UserMessage(err, "Delete failed"); msg != "Notice not found" {
			t.Errorf("Unexpected message %q", msg)
		}
	})
}
