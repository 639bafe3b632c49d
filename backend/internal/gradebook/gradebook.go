// Package gradebook is the teacher dashboard: the students enrolled in the
// selected course joined with their results, plus pending grade entries
// keyed by (student, course).
package gradebook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/session"
	"uniportal/backend/internal/shared"
)

const (
	msgResultRange     = "Result must be a number between 0 and 100."
	msgSelectCourse    = "Please select a course first."
	promptDeleteResult = "Are you sure you want to delete this result?"
)

// Gradebook holds the teacher's authoritative collections, the selected
// course and the pending grade entries
type Gradebook struct {
	sess   *session.Session
	client *restclient.Client

	students *reconcile.Collection[shared.Student]
	results  *reconcile.Collection[shared.Result]
	assigned *reconcile.Collection[shared.Assignment]

	edits    *reconcile.Edits[string]
	dispatch *reconcile.Dispatcher[string]

	mu       sync.RWMutex
	selected string
}

// New creates a gradebook for a teacher session. confirm answers the
// delete prompt.
func New(sess *session.Session, base *restclient.Client, confirm reconcile.Confirmer, opts ...reconcile.CollectionOption) (*Gradebook, error) {
	if sess == nil || sess.Role() != shared.RoleTeacher {
		return nil, fmt.Errorf("gradebook: a teacher session is required")
	}

	g := &Gradebook{
		sess:   sess,
		client: sess.Client(base),
		edits:  reconcile.NewEdits[string](),
	}

	g.students = reconcile.NewCollection("students", func(ctx context.Context) ([]shared.Student, error) {
		var out []shared.Student
		_, err := g.client.Get(ctx, "/api/students", nil, &out)
		return out, err
	}, opts...)

	g.results = reconcile.NewCollection("results", func(ctx context.Context) ([]shared.Result, error) {
		var out []shared.Result
		_, err := g.client.Get(ctx, "/api/results", nil, &out)
		return out, err
	}, opts...)

	g.assigned = reconcile.NewCollection("assigns", func(ctx context.Context) ([]shared.Assignment, error) {
		var out []shared.Assignment
		_, err := g.client.Get(ctx, "/api/assigns", url.Values{"teacher_id": {sess.User().ID}}, &out)
		return out, err
	}, opts...)

	// Writes only ever change results, so only results are re-read
	g.dispatch = reconcile.NewDispatcher("gradebook", g.edits, func(ctx context.Context) error {
		return g.results.Fetch(ctx, reconcile.Background)
	}, confirm)

	return g, nil
}

// ============================================================================
// Loading
// ============================================================================

// Load performs the initial fetch of students, results and assigned
// courses, then selects the first assigned course if none is selected
func (g *Gradebook) Load(ctx context.Context) error {
	return g.fetchAll(ctx, reconcile.Initial)
}

// Refresh re-reads everything in the background; pending entries stay
func (g *Gradebook) Refresh(ctx context.Context) error {
	return g.fetchAll(ctx, reconcile.Background)
}

func (g *Gradebook) fetchAll(ctx context.Context, mode reconcile.Mode) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(fetch func(context.Context, reconcile.Mode) error) {
		defer wg.Done()
		if err := fetch(ctx, mode); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	wg.Add(3)
	go run(g.students.Fetch)
	go run(g.results.Fetch)
	go run(g.assigned.Fetch)
	wg.Wait()

	// Only the initial load picks a course; a cleared selection stays cleared
	if mode == reconcile.Initial {
		g.mu.Lock()
		if g.selected == "" {
			if courses := g.assigned.Rows(); len(courses) > 0 {
				g.selected = courses[0].CourseID
			}
		}
		g.mu.Unlock()
	}

	return errors.Join(errs...)
}

// ============================================================================
// Selection
// ============================================================================

// Courses returns the courses assigned to the teacher
func (g *Gradebook) Courses() []shared.Assignment {
	return g.assigned.Rows()
}

// Selected returns the selected course ID ("" if none)
func (g *Gradebook) Selected() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selected
}

// Select changes the selected course. Pending entries for other courses
// are kept. "" clears the selection.
func (g *Gradebook) Select(courseID string) error {
	if courseID != "" {
		if _, ok := g.assigned.Find(func(a shared.Assignment) bool { return a.CourseID == courseID }); !ok {
			return reconcile.Invalid("course", fmt.Sprintf("Course %s is not assigned to you.", courseID))
		}
	}

	g.mu.Lock()
	g.selected = courseID
	g.mu.Unlock()
	return nil
}

// ============================================================================
// Pending entries
// ============================================================================

func (g *Gradebook) key(studentID string) (reconcile.Key, error) {
	course := g.Selected()
	if course == "" {
		return reconcile.Key{}, reconcile.Invalid("course", msgSelectCourse)
	}
	return reconcile.Key{Row: studentID, Sub: course}, nil
}

// SetResult records typed input for studentID in the selected course
func (g *Gradebook) SetResult(studentID, input string) error {
	k, err := g.key(studentID)
	if err != nil {
		return err
	}
	g.edits.Set(k, input)
	return nil
}

// ResultInput returns what the input for studentID shows: the pending
// entry, else the saved result, else ""
func (g *Gradebook) ResultInput(studentID string) string {
	k, err := g.key(studentID)
	if err != nil {
		return ""
	}
	return g.edits.Value(k, g.committed(k))
}

// Pending returns the number of unsaved entries across all courses
func (g *Gradebook) Pending() int {
	return g.edits.Len()
}

func (g *Gradebook) committed(k reconcile.Key) func() (string, bool) {
	return func() (string, bool) {
		if r, ok := g.findResult(k); ok {
			return FormatResult(r.Result), true
		}
		return "", false
	}
}

func (g *Gradebook) findResult(k reconcile.Key) (shared.Result, bool) {
	return g.results.Find(func(r shared.Result) bool {
		return r.StudentID == k.Row && r.CourseID == k.Sub
	})
}

// ============================================================================
// Mutations
// ============================================================================

type createResultRequest struct {
	StudentID string  `json:"student_id"`
	CourseID  string  `json:"course_id"`
	Result    float64 `json:"result"`
}

type updateResultRequest struct {
	Result float64 `json:"result"`
}

// Save submits the displayed value for studentID in the selected course.
// An existing result is updated, otherwise one is created.
func (g *Gradebook) Save(ctx context.Context, studentID string) (reconcile.Outcome, error) {
	k, err := g.key(studentID)
	if err != nil {
		return reconcile.Rejected, err
	}

	return g.dispatch.Submit(ctx, reconcile.Mutation[string]{
		Key:   k,
		Value: g.edits.Value(k, g.committed(k)),
		Validate: func(v string) error {
			_, err := ParseResult(v)
			return err
		},
		Send: func(ctx context.Context, v string) error {
			value, _ := ParseResult(v)
			if _, exists := g.findResult(k); exists {
				_, err := g.client.Patch(ctx, restclient.PathEscape("/api/results", k.Row, k.Sub), updateResultRequest{Result: value}, nil)
				return err
			}
			_, err := g.client.Post(ctx, "/api/results", createResultRequest{StudentID: k.Row, CourseID: k.Sub, Result: value}, nil)
			return err
		},
	})
}

// Delete removes studentID's result in the selected course after the
// user confirms
func (g *Gradebook) Delete(ctx context.Context, studentID string) (reconcile.Outcome, error) {
	k, err := g.key(studentID)
	if err != nil {
		return reconcile.Rejected, err
	}

	return g.dispatch.Delete(ctx, k, promptDeleteResult, func(ctx context.Context) error {
		_, err := g.client.Delete(ctx, restclient.PathEscape("/api/results", k.Row, k.Sub), nil, nil)
		return err
	}, nil)
}

// ChangePassword changes the teacher's password
func (g *Gradebook) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error {
	return g.sess.ChangePassword(ctx, g.client, oldPassword, newPassword, confirmPassword)
}

// ============================================================================
// Result values
// ============================================================================

// ParseResult parses typed input as a grade in [0, 100]
func ParseResult(input string) (float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, reconcile.Invalid("result", msgResultRange)
	}
	v, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return 0, reconcile.Invalid("result", msgResultRange)
	}
	if err := reconcile.CheckVar("result", v, "gte=0,lte=100", msgResultRange); err != nil {
		return 0, err
	}
	return v, nil
}

// FormatResult renders a saved grade the way it is typed
func FormatResult(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
