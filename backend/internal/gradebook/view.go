package gradebook

import (
	"sort"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/shared"
)

// Empty-state messages shown in place of the student table
const (
	MsgLoading       = "Loading students..."
	MsgNoCourses     = "No courses assigned to you."
	MsgSelectCourse  = "Please select a course to view enrolled students."
	MsgNoEnrollments = "No students enrolled in the selected course."
)

// Row is one rendered student line
type Row struct {
	StudentID string
	Name      string
	Semester  string

	Input     string  // what the result input shows
	Committed float64 // saved result, valid when HasResult
	HasResult bool
	Pending   bool // Input differs from what the server holds

	CanSave   bool
	CanDelete bool
}

// View is the rendered dashboard
type View struct {
	Course     string
	CourseName string
	Courses    []shared.Assignment

	Loading    bool
	Refreshing bool
	Empty      string // non-empty replaces Rows

	Rows []Row
}

// Compose joins the students enrolled in selected with their results and
// the pending entries. It holds no state and performs no I/O.
func Compose(students []shared.Student, results []shared.Result, selected string, pending map[reconcile.Key]string) []Row {
	if selected == "" {
		return nil
	}

	committed := make(map[string]float64)
	for _, r := range results {
		if r.CourseID == selected {
			committed[r.StudentID] = r.Result
		}
	}

	rows := make([]Row, 0, len(students))
	for _, s := range students {
		if !s.HasCourse(selected) {
			continue
		}

		row := Row{StudentID: s.StudentID, Name: s.Name, Semester: s.Semester}
		row.Committed, row.HasResult = committed[s.StudentID]
		if row.HasResult {
			row.Input = FormatResult(row.Committed)
		}

		if v, ok := pending[reconcile.Key{Row: s.StudentID, Sub: selected}]; ok {
			row.Input = v
			row.Pending = !row.HasResult || v != FormatResult(row.Committed)
		}

		_, err := ParseResult(row.Input)
		row.CanSave = err == nil
		row.CanDelete = row.HasResult
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StudentID < rows[j].StudentID })
	return rows
}

// View renders the current state
func (g *Gradebook) View() View {
	selected := g.Selected()
	courses := g.assigned.Rows()

	v := View{Course: selected, Courses: courses}
	for _, c := range courses {
		if c.CourseID == selected {
			v.CourseName = c.Name
			break
		}
	}

	st, rt, at := g.students.Status(), g.results.Status(), g.assigned.Status()
	v.Loading = st.Loading || rt.Loading || at.Loading || !st.Loaded || !rt.Loaded || !at.Loaded
	v.Refreshing = st.Refreshing || rt.Refreshing || at.Refreshing

	switch {
	case v.Loading:
		v.Empty = MsgLoading
		return v
	case len(courses) == 0:
		v.Empty = MsgNoCourses
		return v
	case selected == "":
		v.Empty = MsgSelectCourse
		return v
	}

	pending := make(map[reconcile.Key]string)
	for _, k := range g.edits.Keys() {
		if k.Sub != selected {
			continue
		}
		if val, ok := g.edits.Get(k); ok {
			pending[k] = val
		}
	}

	v.Rows = Compose(g.students.Rows(), g.results.Rows(), selected, pending)
	if len(v.Rows) == 0 {
		v.Empty = MsgNoEnrollments
	}
	return v
}
