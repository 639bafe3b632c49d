package advising

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/session"
	"uniportal/backend/internal/shared"
)

type fakePortal struct {
	mu       sync.Mutex
	students map[string]*shared.Student
	calls    []string
	query    string
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, r.Method+" "+r.URL.Path)

	write := func(status int, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": status < 300, "data": data})
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/students" {
		p.query = r.URL.Query().Get("department_id")
		out := []shared.Student{}
		for _, s := range p.students {
			if s.DepartmentID == p.query {
				out = append(out, *s)
			}
		}
		write(http.StatusOK, out)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[3] != "course" {
		write(http.StatusNotFound, nil)
		return
	}
	s, ok := p.students[parts[2]]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "Student not found"})
		return
	}

	var body struct {
		Course string `json:"course"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	switch r.Method {
	case http.MethodPost:
		s.Courses = append(s.Courses, body.Course)
	case http.MethodDelete:
		kept := s.Courses[:0]
		for _, c := range s.Courses {
			if c != body.Course {
				kept = append(kept, c)
			}
		}
		s.Courses = kept
	}
	write(http.StatusOK, s)
}

func (p *fakePortal) count(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (p *fakePortal) reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

func setupAdvisingTestEnv(t *testing.T, answer bool) (*Advising, *fakePortal) {
	t.Helper()

	portal := &fakePortal{students: map[string]*shared.Student{
		"S1": {Account: shared.Account{Name: "Ana", DepartmentID: "CSE"}, StudentID: "S1", Courses: []string{"CSE101"}},
		"S2": {Account: shared.Account{Name: "Ben", DepartmentID: "CSE"}, StudentID: "S2"},
		"S3": {Account: shared.Account{Name: "Cy", DepartmentID: "MAT"}, StudentID: "S3"},
	}}
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)

	sess, err := session.New("test-token", shared.RoleAdvisor, session.User{ID: "adv1", DepartmentID: "CSE"})
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}

	confirm := reconcile.ConfirmFunc(func(context.Context, string) bool { return answer })
	a, err := New(sess, restclient.New(server.URL), confirm, reconcile.WithMinFlagDuration(0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	portal.reset()
	return a, portal
}

func TestAdvising_Load(t *testing.T) {
	a, portal := setupAdvisingTestEnv(t, true)

	if portal.query != "CSE" {
		t.Errorf("Expected department_id=CSE, got %q", portal.query)
	}
	v := a.View()
	if len(v.Rows) != 2 || v.Rows[0].StudentID != "S1" {
		t.Errorf("Expected S1 and S2, got %+v", v.Rows)
	}
}

func TestAdvising_AddCourse(t *testing.T) {
	ctx := context.Background()

	// --- Test 1: Blank names never reach the server ---
	t.Run("Blank Name", func(t *testing.T) {
		a, portal := setupAdvisingTestEnv(t, true)

		a.SetNewCourse("S2", "   ")
		_, err := a.AddCourse(ctx, "S2")
		if reconcile.UserMessage(err, "") != msgEnterCourse {
			t.Errorf("Expected %q, got %v", msgEnterCourse, err)
		}
		if len(portal.calls) != 0 {
			t.Errorf("Expected zero network calls, got %v", portal.calls)
		}
		if a.NewCourse("S2") != "   " {
			t.Error("Expected typed value kept")
		}
	})

	// --- Test 2: Success merges, clears and refreshes once ---
	t.Run("Success", func(t *testing.T) {
		a, portal := setupAdvisingTestEnv(t, true)

		a.SetNewCourse("S1", "Intermediate Programming")
		a.SetNewCourse("S2", "Algorithms")
		if _, err := a.AddCourse(ctx, "S2"); err != nil {
			t.Fatalf("AddCourse failed: %v", err)
		}
		if portal.count("POST /api/students/S2/course") != 1 || portal.count("GET /api/students") != 1 {
			t.Errorf("Unexpected calls %v", portal.calls)
		}
		if a.NewCourse("S2") != "" {
			t.Error("Expected S2 entry cleared")
		}
		if a.NewCourse("S1") != "Intermediate Programming" {
			t.Error("Expected S1 entry kept")
		}

		for _, r := range a.View().Rows {
			if r.StudentID == "S2" && (len(r.Courses) != 1 || r.Courses[0] != "Algorithms") {
				t.Errorf("Expected Algorithms on S2, got %v", r.Courses)
			}
		}
	})

	// --- Test 3: Unknown student keeps the entry and reports the server message ---
	t.Run("Server Error", func(t *testing.T) {
		a, _ := setupAdvisingTestEnv(t, true)

		a.SetNewCourse("S9", "Algorithms")
		_, err := a.AddCourse(ctx, "S9")
		if !restclient.IsStatus(err, http.StatusNotFound) {
			t.Fatalf("Expected 404, got %v", err)
		}
		if msg := reconcile.UserMessage(err, "Failed to add course"); msg != "Student not found" {
			t.Errorf("Unexpected message %q", msg)
		}
		if a.NewCourse("S9") != "Algorithms" {
			t.Error("Expected typed value kept")
		}
	})
}

func TestAdvising_DeleteCourse(t *testing.T) {
	ctx := context.Background()

	t.Run("Declined", func(t *testing.T) {
		a, portal := setupAdvisingTestEnv(t, false)

		if _, err := a.DeleteCourse(ctx, "S1", "CSE101"); !errors.Is(err, reconcile.ErrCancelled) {
			t.Errorf("Expected ErrCancelled, got %v", err)
		}
		if len(portal.calls) != 0 {
			t.Errorf("Expected zero network calls, got %v", portal.calls)
		}
	})

	t.Run("Confirmed", func(t *testing.T) {
		a, portal := setupAdvisingTestEnv(t, true)

		if _, err := a.DeleteCourse(ctx, "S1", "CSE101"); err != nil {
			t.Fatalf("DeleteCourse failed: %v", err)
		}
		if portal.count("DELETE /api/students/S1/course") != 1 {
			t.Errorf("Unexpected calls %v", portal.calls)
		}
		for _, s := range a.Students() {
			if s.StudentID == "S1" && len(s.Courses) != 0 {
				t.Errorf("Expected no courses on S1, got %v", s.Courses)
			}
		}
	})
}

func TestCompose(t *testing.T) {
	rows := Compose([]shared.Student{
		{StudentID: "S2"},
		{StudentID: "S1", Courses: []string{"CSE101"}},
	}, map[string]string{"S2": "Algorithms", "S1": " "})

	if len(rows) != 2 || rows[0].StudentID != "S1" {
		t.Fatalf("Unexpected rows %+v", rows)
	}
	if rows[0].CanAdd || !rows[1].CanAdd || rows[1].NewCourse != "Algorithms" {
		t.Errorf("Unexpected affordances %+v", rows)
	}
}

func TestNew_RequiresAdvisor(t *testing.T) {
	sess, _ := session.New("tok", shared.RoleTeacher, session.User{ID: "t1"})
	if _, err := New(sess, restclient.New("http://localhost"), nil); err == nil {
		t.Error("Expected error for non-advisor session")
	}
}
