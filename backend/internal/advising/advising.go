// Package advising is the advisor dashboard: the students of the advisor's
// department with a per-row "new course" entry.
package advising

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/session"
	"uniportal/backend/internal/shared"
)

// SubNewCourse is the pending-edit sub key for a row's course entry
const SubNewCourse = "newCourse"

const (
	msgEnterCourse     = "Please enter a course name"
	promptDeleteCourse = "Are you sure you want to delete this course?"

	MsgLoading    = "Loading students..."
	MsgNoStudents = "No students found in your department."
)

// Advising holds the department's students and the typed course names
type Advising struct {
	sess     *session.Session
	client   *restclient.Client
	students *reconcile.Collection[shared.Student]
	edits    *reconcile.Edits[string]
	dispatch *reconcile.Dispatcher[string]
}

// New creates the dashboard for an advisor session
func New(sess *session.Session, base *restclient.Client, confirm reconcile.Confirmer, opts ...reconcile.CollectionOption) (*Advising, error) {
	if sess == nil || sess.Role() != shared.RoleAdvisor {
		return nil, fmt.Errorf("advising: an advisor session is required")
	}

	a := &Advising{
		sess:   sess,
		client: sess.Client(base),
		edits:  reconcile.NewEdits[string](),
	}

	dept := sess.User().DepartmentID
	a.students = reconcile.NewCollection("students", func(ctx context.Context) ([]shared.Student, error) {
		var out []shared.Student
		_, err := a.client.Get(ctx, "/api/students", url.Values{"department_id": {dept}}, &out)
		return out, err
	}, opts...)

	a.dispatch = reconcile.NewDispatcher("advising", a.edits, func(ctx context.Context) error {
		return a.students.Fetch(ctx, reconcile.Background)
	}, confirm)

	return a, nil
}

// Load performs the initial fetch
func (a *Advising) Load(ctx context.Context) error {
	return a.students.Fetch(ctx, reconcile.Initial)
}

// Refresh re-reads the students without touching typed course names
func (a *Advising) Refresh(ctx context.Context) error {
	return a.students.Fetch(ctx, reconcile.Background)
}

// Students returns the current department students
func (a *Advising) Students() []shared.Student {
	return a.students.Rows()
}

// SetNewCourse records the course name typed on studentID's row
func (a *Advising) SetNewCourse(studentID, name string) {
	a.edits.Set(newCourseKey(studentID), name)
}

// NewCourse returns the typed course name for studentID's row
func (a *Advising) NewCourse(studentID string) string {
	return a.edits.Value(newCourseKey(studentID), nil)
}

// Pending returns the number of rows with a typed course name
func (a *Advising) Pending() int {
	return a.edits.Len()
}

func newCourseKey(studentID string) reconcile.Key {
	return reconcile.Key{Row: studentID, Sub: SubNewCourse}
}

// ============================================================================
// Mutations
// ============================================================================

type courseRequest struct {
	Course string `json:"course"`
}

// AddCourse enrolls studentID in the typed course. The returned student
// replaces the row before the refresh runs.
func (a *Advising) AddCourse(ctx context.Context, studentID string) (reconcile.Outcome, error) {
	key := newCourseKey(studentID)
	var updated shared.Student

	return a.dispatch.Submit(ctx, reconcile.Mutation[string]{
		Key:   key,
		Value: a.edits.Value(key, nil),
		Validate: func(v string) error {
			return reconcile.CheckVar("course", strings.TrimSpace(v), "required", msgEnterCourse)
		},
		Send: func(ctx context.Context, v string) error {
			_, err := a.client.Post(ctx, restclient.PathEscape("/api/students", studentID, "course"), courseRequest{Course: strings.TrimSpace(v)}, &updated)
			return err
		},
		Merge: func() { a.merge(studentID, updated) },
	})
}

// DeleteCourse removes course from studentID after the user confirms
func (a *Advising) DeleteCourse(ctx context.Context, studentID, course string) (reconcile.Outcome, error) {
	var updated shared.Student

	return a.dispatch.Delete(ctx, reconcile.Key{Row: studentID, Sub: course}, promptDeleteCourse, func(ctx context.Context) error {
		_, err := a.client.Delete(ctx, restclient.PathEscape("/api/students", studentID, "course"), courseRequest{Course: course}, &updated)
		return err
	}, func() { a.merge(studentID, updated) })
}

func (a *Advising) merge(studentID string, s shared.Student) {
	if s.StudentID == "" {
		return
	}
	a.students.Upsert(func(r shared.Student) bool { return r.StudentID == studentID }, s)
}

// ChangePassword changes the advisor's password
func (a *Advising) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error {
	return a.sess.ChangePassword(ctx, a.client, oldPassword, newPassword, confirmPassword)
}

// ============================================================================
// View
// ============================================================================

// Row is one rendered student line
type Row struct {
	StudentID string
	Name      string
	Semester  string
	Courses   []string
	NewCourse string
	CanAdd    bool
}

// View is the rendered dashboard
type View struct {
	Department string
	Loading    bool
	Refreshing bool
	Empty      string
	Rows       []Row
}

// Compose joins students with their typed course names. Pure.
func Compose(students []shared.Student, pending map[string]string) []Row {
	rows := make([]Row, 0, len(students))
	for _, s := range students {
		typed := pending[s.StudentID]
		rows = append(rows, Row{
			StudentID: s.StudentID,
			Name:      s.Name,
			Semester:  s.Semester,
			Courses:   append([]string(nil), s.Courses...),
			NewCourse: typed,
			CanAdd:    strings.TrimSpace(typed) != "",
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StudentID < rows[j].StudentID })
	return rows
}

// View renders the current state
func (a *Advising) View() View {
	st := a.students.Status()
	v := View{
		Department: a.sess.User().DepartmentID,
		Loading:    st.Loading || !st.Loaded,
		Refreshing: st.Refreshing,
	}
	if v.Loading {
		v.Empty = MsgLoading
		return v
	}

	pending := make(map[string]string)
	for _, k := range a.edits.Keys() {
		if k.Sub != SubNewCourse {
			continue
		}
		if val, ok := a.edits.Get(k); ok {
			pending[k.Row] = val
		}
	}

	v.Rows = Compose(a.students.Rows(), pending)
	if len(v.Rows) == 0 {
		v.Empty = MsgNoStudents
	}
	return v
}
