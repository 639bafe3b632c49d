package transcript

import (
	"context"
	"encoding/json"
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
	mu      sync.Mutex
	student shared.Student
	results []shared.Result
	courses map[string]shared.Course
	calls   []string
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

	switch path := r.URL.Path; {
	case path == "/api/students/"+p.student.StudentID:
		write(http.StatusOK, p.student)
	case path == "/api/results/student/"+p.student.StudentID:
		write(http.StatusOK, p.results)
	case strings.HasPrefix(path, "/api/courses/"):
		if c, ok := p.courses[strings.TrimPrefix(path, "/api/courses/")]; ok {
			write(http.StatusOK, c)
			return
		}
		write(http.StatusNotFound, nil)
	default:
		write(http.StatusNotFound, nil)
	}
}

func setupTranscriptTestEnv(t *testing.T, student shared.Student) (*Transcript, *fakePortal) {
	t.Helper()

	portal := &fakePortal{
		student: student,
		courses: map[string]shared.Course{
			"CSE101": {CourseID: "CSE101", CourseName: "Intro to Programming", CourseContent: "Go basics"},
			"CSE102": {CourseID: "CSE102", CourseName: "Data Structures"},
		},
	}
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)

	sess, err := session.New("test-token", shared.RoleStudent, session.User{ID: student.ID, StudentID: student.StudentID})
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	tr, err := New(sess, restclient.New(server.URL), reconcile.WithMinFlagDuration(0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tr, portal
}

func TestTranscript_Load(t *testing.T) {
	ctx := context.Background()
	ana := shared.Student{
		Account:   shared.Account{ID: "u1", Name: "Ana", DepartmentID: "CSE"},
		StudentID: "S1",
		Courses:   []string{"CSE101", "CSE102"},
	}

	// --- Test 1: Loading until the profile arrives ---
	t.Run("Before Load", func(t *testing.T) {
		tr, portal := setupTranscriptTestEnv(t, ana)
		if v := tr.View(); !v.Loading || v.Empty != MsgLoading {
			t.Errorf("Expected loading view, got %+v", v)
		}
		if len(portal.calls) != 0 {
			t.Errorf("Expected no calls before Load, got %v", portal.calls)
		}
	})

	// --- Test 2: Profile, courses and results joined ---
	t.Run("Loaded", func(t *testing.T) {
		tr, portal := setupTranscriptTestEnv(t, ana)
		portal.results = []shared.Result{{StudentID: "S1", CourseID: "CSE101", Result: 0}}

		if err := tr.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		v := tr.View()
		if v.Loading || v.Empty != "" || v.Name != "Ana" || v.Semester != semesterUnset {
			t.Fatalf("Unexpected view: %+v", v)
		}
		if len(v.Courses) != 2 || v.Courses[0].CourseName != "Intro to Programming" || !v.Courses[0].Graded {
			t.Errorf("Unexpected courses: %+v", v.Courses)
		}
		if v.Courses[1].Graded {
			t.Errorf("CSE102 has no result: %+v", v.Courses[1])
		}
		if len(v.Results) != 1 || v.Results[0].Result != 0 || !v.Results[0].Graded {
			t.Errorf("Expected a zero result, got %+v", v.Results)
		}
	})

	// --- Test 3: No enrolled courses skips the course reads ---
	t.Run("No Courses", func(t *testing.T) {
		bare := ana
		bare.Courses = nil
		tr, portal := setupTranscriptTestEnv(t, bare)

		if err := tr.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if v := tr.View(); v.Empty != MsgNoCourses {
			t.Errorf("Expected %q, got %+v", MsgNoCourses, v)
		}
		for _, c := range portal.calls {
			if strings.HasPrefix(c, "GET /api/courses/") {
				t.Errorf("Unexpected course read %s", c)
			}
		}
	})

	// --- Test 4: A missing course fails the load ---
	t.Run("Missing Course", func(t *testing.T) {
		lost := ana
		lost.Courses = []string{"CSE101", "GONE1"}
		tr, _ := setupTranscriptTestEnv(t, lost)

		if err := tr.Load(ctx); !restclient.IsStatus(err, http.StatusNotFound) {
			t.Errorf("Expected 404 from the course read, got %v", err)
		}
	})
}

func TestNew_RequiresStudent(t *testing.T) {
	teacher, _ := session.New("tok", shared.RoleTeacher, session.User{ID: "t1"})
	if _, err := New(teacher, restclient.New("http://portal.test")); err == nil {
		t.Error("Expected a teacher session to be rejected")
	}

	noID, _ := session.New("tok", shared.RoleStudent, session.User{ID: "u1"})
	if _, err := New(noID, restclient.New("http://portal.test")); err == nil {
		t.Error("Expected a session without student ID to be rejected")
	}
}

func TestCompose(t *testing.T) {
	s := shared.Student{StudentID: "S1", Courses: []string{"CSE102", "CSE101"}}
	courses := []shared.Course{{CourseID: "CSE101", CourseName: "Intro"}}
	results := []shared.Result{
		{CourseID: "MAT201", Result: 55},
		{CourseID: "CSE101", Result: 91},
	}

	enrolled, graded := Compose(s, courses, results)
	if len(enrolled) != 2 || enrolled[0].CourseID != "CSE102" || enrolled[1].Result != 91 {
		t.Errorf("Unexpected enrolled lines: %+v", enrolled)
	}
	if len(graded) != 2 || graded[0].CourseID != "CSE101" || graded[1].Enrolled {
		t.Errorf("Expected graded sorted with MAT201 not enrolled, got %+v", graded)
	}
}
