// Package transcript is the student dashboard: the logged-in student's
// profile, their enrolled courses and their results. It is read only.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/session"
	"uniportal/backend/internal/shared"
)

const (
	MsgLoading    = "Loading Dashboard..."
	MsgNoCourses  = "No assigned courses yet."
	MsgNoResults  = "No results found."
	semesterUnset = "Unknown"
)

// Transcript holds the student's own records
type Transcript struct {
	sess   *session.Session
	client *restclient.Client

	profile *reconcile.Collection[shared.Student]
	results *reconcile.Collection[shared.Result]
	courses *reconcile.Collection[shared.Course]
}

// New creates the dashboard for a student session
func New(sess *session.Session, base *restclient.Client, opts ...reconcile.CollectionOption) (*Transcript, error) {
	if sess == nil || sess.Role() != shared.RoleStudent {
		return nil, fmt.Errorf("transcript: a student session is required")
	}
	studentID := sess.User().StudentID
	if studentID == "" {
		return nil, fmt.Errorf("transcript: session has no student ID")
	}

	t := &Transcript{sess: sess, client: sess.Client(base)}

	t.profile = reconcile.NewCollection("profile", func(ctx context.Context) ([]shared.Student, error) {
		var s shared.Student
		if _, err := t.client.Get(ctx, restclient.PathEscape("/api/students", studentID), nil, &s); err != nil {
			return nil, err
		}
		return []shared.Student{s}, nil
	}, opts...)

	t.results = reconcile.NewCollection("results", func(ctx context.Context) ([]shared.Result, error) {
		var out []shared.Result
		_, err := t.client.Get(ctx, restclient.PathEscape("/api/results/student", studentID), nil, &out)
		return out, err
	}, opts...)

	t.courses = reconcile.NewCollection("courses", t.fetchCourses, opts...)

	return t, nil
}

// fetchCourses reads each enrolled course concurrently
func (t *Transcript) fetchCourses(ctx context.Context) ([]shared.Course, error) {
	s, ok := t.Profile()
	if !ok || len(s.Courses) == 0 {
		return nil, nil
	}

	out := make([]shared.Course, len(s.Courses))
	errs := make([]error, len(s.Courses))
	var wg sync.WaitGroup
	for i, id := range s.Courses {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = t.client.Get(ctx, restclient.PathEscape("/api/courses", id), nil, &out[i])
		}(i, id)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Load fetches the profile and results, then the enrolled courses
func (t *Transcript) Load(ctx context.Context) error {
	return t.fetchAll(ctx, reconcile.Initial)
}

// Refresh re-reads everything in the background
func (t *Transcript) Refresh(ctx context.Context) error {
	return t.fetchAll(ctx, reconcile.Background)
}

func (t *Transcript) fetchAll(ctx context.Context, mode reconcile.Mode) error {
	var (
		wg         sync.WaitGroup
		profileErr error
		resultsErr error
	)
	wg.Add(2)
	go func() { defer wg.Done(); profileErr = t.profile.Fetch(ctx, mode) }()
	go func() { defer wg.Done(); resultsErr = t.results.Fetch(ctx, mode) }()
	wg.Wait()

	// Courses come from the profile, so they wait for it
	return errors.Join(profileErr, resultsErr, t.courses.Fetch(ctx, mode))
}

// Profile returns the student's record once loaded
func (t *Transcript) Profile() (shared.Student, bool) {
	rows := t.profile.Rows()
	if len(rows) == 0 {
		return shared.Student{}, false
	}
	return rows[0], true
}

// ChangePassword changes the student's password
func (t *Transcript) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error {
	return t.sess.ChangePassword(ctx, t.client, oldPassword, newPassword, confirmPassword)
}

// ============================================================================
// View
// ============================================================================

// Line is one enrolled or graded course
type Line struct {
	CourseID   string
	CourseName string
	Content    string
	Enrolled   bool
	Result     float64
	Graded     bool
}

// View is the rendered dashboard
type View struct {
	StudentID  string
	Name       string
	Department string
	Semester   string

	Loading bool
	Empty   string // non-empty replaces Lines

	Courses []Line // enrolled courses
	Results []Line // graded courses
}

// Compose joins the student's courses with their details and results.
// A result for a course the student is no longer enrolled in is still
// listed under Results.
func Compose(s shared.Student, courses []shared.Course, results []shared.Result) (enrolled, graded []Line) {
	details := make(map[string]shared.Course, len(courses))
	for _, c := range courses {
		details[c.CourseID] = c
	}

	line := func(id string) Line {
		c := details[id]
		return Line{CourseID: id, CourseName: c.CourseName, Content: c.CourseContent, Enrolled: s.HasCourse(id)}
	}

	for _, id := range s.Courses {
		enrolled = append(enrolled, line(id))
	}
	for _, r := range results {
		l := line(r.CourseID)
		l.Result, l.Graded = r.Result, true
		graded = append(graded, l)
	}

	sort.SliceStable(graded, func(i, j int) bool { return graded[i].CourseID < graded[j].CourseID })
	for i := range enrolled {
		for _, g := range graded {
			if g.CourseID == enrolled[i].CourseID {
				enrolled[i].Result, enrolled[i].Graded = g.Result, true
			}
		}
	}
	return enrolled, graded
}

// View renders the current state
func (t *Transcript) View() View {
	ps, rs, cs := t.profile.Status(), t.results.Status(), t.courses.Status()
	s, ok := t.Profile()

	v := View{Loading: ps.Loading || rs.Loading || cs.Loading || !ok}
	if !ok {
		v.Empty = MsgLoading
		return v
	}

	v.StudentID, v.Name, v.Department, v.Semester = s.StudentID, s.Name, s.DepartmentID, s.Semester
	if v.Semester == "" {
		v.Semester = semesterUnset
	}
	if v.Loading {
		v.Empty = MsgLoading
		return v
	}

	v.Courses, v.Results = Compose(s, t.courses.Rows(), t.results.Rows())
	if len(v.Courses) == 0 {
		v.Empty = MsgNoCourses
	}
	return v
}
