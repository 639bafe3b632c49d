// Package store persists portal documents. MemoryStore backs tests and the
// default server; MongoStore backs deployments.
package store

import (
	"context"
	"errors"

	"uniportal/backend/internal/shared"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken
	ErrConflict = errors.New("already exists")
)

// Store is everything the portal API reads and writes
type Store interface {
	// Accounts. Student accounts live in the students collection; the
	// other roles use plain accounts.
	CreateAccount(ctx context.Context, role string, acct *shared.Account) error
	FindAccountByEmail(ctx context.Context, role, email string) (*shared.Account, error)
	GetAccount(ctx context.Context, role, id string) (*shared.Account, error)
	SetPasswordHash(ctx context.Context, role, id, hash string) error

	// Students
	CreateStudent(ctx context.Context, s *shared.Student) error
	ListStudents(ctx context.Context, departmentID string) ([]shared.Student, error)
	GetStudent(ctx context.Context, studentID string) (*shared.Student, error)
	FindStudentByEmail(ctx context.Context, email string) (*shared.Student, error)
	AddStudentCourse(ctx context.Context, studentID, course string) (*shared.Student, error)
	RemoveStudentCourse(ctx context.Context, studentID, course string) (*shared.Student, error)

	// Results; (student_id, course_id) is unique
	ListResults(ctx context.Context, studentID string) ([]shared.Result, error)
	CreateResult(ctx context.Context, r *shared.Result) error
	UpdateResult(ctx context.Context, studentID, courseID string, value float64) (*shared.Result, error)
	DeleteResult(ctx context.Context, studentID, courseID string) error

	// Teacher assignments; (teacher_id, course_id) is unique
	ListAssignments(ctx context.Context, teacherID string) ([]shared.Assignment, error)
	CreateAssignment(ctx context.Context, a *shared.Assignment) error
	DeleteAssignment(ctx context.Context, teacherID, courseID string) error

	// Catalog
	CreateCourse(ctx context.Context, c *shared.Course) error
	GetCourse(ctx context.Context, courseID string) (*shared.Course, error)
	ListCourses(ctx context.Context) ([]shared.Course, error)
	CreateDepartment(ctx context.Context, d *shared.Department) error
	ListDepartments(ctx context.Context) ([]shared.Department, error)

	// Notices
	ListNotices(ctx context.Context) ([]shared.Notice, error)
	CreateNotice(ctx context.Context, n *shared.Notice) error
	DeleteNotice(ctx context.Context, id string) error

	Close(ctx context.Context) error
}

func roleCollection(role string) string {
	return role + "s"
}
