package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"uniportal/backend/internal/shared"
)

// MemoryStore keeps every collection in maps guarded by one RWMutex.
// Returned documents are copies.
type MemoryStore struct {
	mu          sync.RWMutex
	accounts    map[string]map[string]*shared.Account // role -> id -> account
	students    map[string]*shared.Student            // studentId -> student
	results     map[resultKey]*shared.Result
	assignments map[assignKey]*shared.Assignment
	courses     map[string]*shared.Course
	departments map[string]*shared.Department
	notices     map[string]*shared.Notice
}

type resultKey struct{ student, course string }

type assignKey struct{ teacher, course string }

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]map[string]*shared.Account),
		students:    make(map[string]*shared.Student),
		results:     make(map[resultKey]*shared.Result),
		assignments: make(map[assignKey]*shared.Assignment),
		courses:     make(map[string]*shared.Course),
		departments: make(map[string]*shared.Department),
		notices:     make(map[string]*shared.Notice),
	}
}

// Close is a no-op
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// ============================================================================
// Accounts
// ============================================================================

func (m *MemoryStore) CreateAccount(ctx context.Context, role string, acct *shared.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := m.accounts[role]
	if byID == nil {
		byID = make(map[string]*shared.Account)
		m.accounts[role] = byID
	}
	for _, a := range byID {
		if strings.EqualFold(a.Email, acct.Email) {
			return fmt.Errorf("%s %s: %w", role, acct.Email, ErrConflict)
		}
	}
	if _, ok := byID[acct.ID]; ok {
		return fmt.Errorf("%s %s: %w", role, acct.ID, ErrConflict)
	}

	cp := *acct
	byID[acct.ID] = &cp
	return nil
}

func (m *MemoryStore) FindAccountByEmail(ctx context.Context, role, email string) (*shared.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if role == shared.RoleStudent {
		for _, s := range m.students {
			if strings.EqualFold(s.Email, email) {
				cp := s.Account
				return &cp, nil
			}
		}
		return nil, fmt.Errorf("student %s: %w", email, ErrNotFound)
	}

	for _, a := range m.accounts[role] {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%s %s: %w", role, email, ErrNotFound)
}

func (m *MemoryStore) GetAccount(ctx context.Context, role, id string) (*shared.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if role == shared.RoleStudent {
		for _, s := range m.students {
			if s.ID == id {
				cp := s.Account
				return &cp, nil
			}
		}
		return nil, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}

	a, ok := m.accounts[role][id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", role, id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) SetPasswordHash(ctx context.Context, role, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if role == shared.RoleStudent {
		for _, s := range m.students {
			if s.ID == id {
				s.PasswordHash = hash
				s.UpdatedAt = now
				return nil
			}
		}
		return fmt.Errorf("student %s: %w", id, ErrNotFound)
	}

	a, ok := m.accounts[role][id]
	if !ok {
		return fmt.Errorf("%s %s: %w", role, id, ErrNotFound)
	}
	a.PasswordHash = hash
	a.UpdatedAt = now
	return nil
}

// ============================================================================
// Students
// ============================================================================

func (m *MemoryStore) CreateStudent(ctx context.Context, s *shared.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[s.StudentID]; ok {
		return fmt.Errorf("student %s: %w", s.StudentID, ErrConflict)
	}
	for _, existing := range m.students {
		if strings.EqualFold(existing.Email, s.Email) {
			return fmt.Errorf("student %s: %w", s.Email, ErrConflict)
		}
	}

	cp := copyStudent(s)
	if cp.Courses == nil {
		cp.Courses = []string{}
	}
	m.students[s.StudentID] = cp
	return nil
}

func (m *MemoryStore) ListStudents(ctx context.Context, departmentID string) ([]shared.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]shared.Student, 0, len(m.students))
	for _, s := range m.students {
		if departmentID != "" && s.DepartmentID != departmentID {
			continue
		}
		out = append(out, *copyStudent(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *MemoryStore) GetStudent(ctx context.Context, studentID string) (*shared.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[studentID]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	return copyStudent(s), nil
}

func (m *MemoryStore) FindStudentByEmail(ctx context.Context, email string) (*shared.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.students {
		if strings.EqualFold(s.Email, email) {
			return copyStudent(s), nil
		}
	}
	return nil, fmt.Errorf("student %s: %w", email, ErrNotFound)
}

func (m *MemoryStore) AddStudentCourse(ctx context.Context, studentID, course string) (*shared.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[studentID]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	if s.HasCourse(course) {
		return nil, fmt.Errorf("student %s course %s: %w", studentID, course, ErrConflict)
	}
	s.Courses = append(s.Courses, course)
	s.UpdatedAt = time.Now()
	return copyStudent(s), nil
}

func (m *MemoryStore) RemoveStudentCourse(ctx context.Context, studentID, course string) (*shared.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[studentID]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	if !s.HasCourse(course) {
		return nil, fmt.Errorf("student %s course %s: %w", studentID, course, ErrNotFound)
	}

	kept := make([]string, 0, len(s.Courses)-1)
	for _, c := range s.Courses {
		if c != course {
			kept = append(kept, c)
		}
	}
	s.Courses = kept
	s.UpdatedAt = time.Now()
	return copyStudent(s), nil
}

func copyStudent(s *shared.Student) *shared.Student {
	cp := *s
	cp.Courses = append([]string(nil), s.Courses...)
	return &cp
}

// ============================================================================
// Results
// ============================================================================

func (m *MemoryStore) ListResults(ctx context.Context, studentID string) ([]shared.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]shared.Result, 0, len(m.results))
	for _, r := range m.results {
		if studentID != "" && r.StudentID != studentID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}

func (m *MemoryStore) CreateResult(ctx context.Context, r *shared.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := resultKey{r.StudentID, r.CourseID}
	if _, ok := m.results[k]; ok {
		return fmt.Errorf("result %s/%s: %w", r.StudentID, r.CourseID, ErrConflict)
	}
	cp := *r
	m.results[k] = &cp
	return nil
}

func (m *MemoryStore) UpdateResult(ctx context.Context, studentID, courseID string, value float64) (*shared.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[resultKey{studentID, courseID}]
	if !ok {
		return nil, fmt.Errorf("result %s/%s: %w", studentID, courseID, ErrNotFound)
	}
	r.Result = value
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) DeleteResult(ctx context.Context, studentID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := resultKey{studentID, courseID}
	if _, ok := m.results[k]; !ok {
		return fmt.Errorf("result %s/%s: %w", studentID, courseID, ErrNotFound)
	}
	delete(m.results, k)
	return nil
}

// ============================================================================
// Assignments
// ============================================================================

func (m *MemoryStore) ListAssignments(ctx context.Context, teacherID string) ([]shared.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]shared.Assignment, 0, len(m.assignments))
	for _, a := range m.assignments {
		if teacherID != "" && a.TeacherID != teacherID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}

func (m *MemoryStore) CreateAssignment(ctx context.Context, a *shared.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := assignKey{a.TeacherID, a.CourseID}
	if _, ok := m.assignments[k]; ok {
		return fmt.Errorf("assignment %s/%s: %w", a.TeacherID, a.CourseID, ErrConflict)
	}
	cp := *a
	m.assignments[k] = &cp
	return nil
}

func (m *MemoryStore) DeleteAssignment(ctx context.Context, teacherID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := assignKey{teacherID, courseID}
	if _, ok := m.assignments[k]; !ok {
		return fmt.Errorf("assignment %s/%s: %w", teacherID, courseID, ErrNotFound)
	}
	delete(m.assignments, k)
	return nil
}

// ============================================================================
// Catalog
// ============================================================================

func (m *MemoryStore) CreateCourse(ctx context.Context, c *shared.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.courses[c.CourseID]; ok {
		return fmt.Errorf("course %s: %w", c.CourseID, ErrConflict)
	}
	cp := *c
	m.courses[c.CourseID] = &cp
	return nil
}

func (m *MemoryStore) GetCourse(ctx context.Context, courseID string) (*shared.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListCourses(ctx context.Context) ([]shared.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]shared.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m *MemoryStore) CreateDepartment(ctx context.Context, d *shared.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.departments[d.DepartmentID]; ok {
		return fmt.Errorf("department %s: %w", d.DepartmentID, ErrConflict)
	}
	cp := *d
	m.departments[d.DepartmentID] = &cp
	return nil
}

func (m *MemoryStore) ListDepartments(ctx context.Context) ([]shared.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]shared.Department, 0, len(m.departments))
	for _, d := range m.departments {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartmentID < out[j].DepartmentID })
	return out, nil
}

// ============================================================================
// Notices
// ============================================================================

func (m *MemoryStore) ListNotices(ctx context.Context) ([]shared.Notice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]shared.Notice, 0, len(m.notices))
	for _, n := range m.notices {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateNotice(ctx context.Context, n *shared.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notices[n.ID]; ok {
		return fmt.Errorf("notice %s: %w", n.ID, ErrConflict)
	}
	cp := *n
	m.notices[n.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteNotice(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notices[id]; !ok {
		return fmt.Errorf("notice %s: %w", id, ErrNotFound)
	}
	delete(m.notices, id)
	return nil
}
