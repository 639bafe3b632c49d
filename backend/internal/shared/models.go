// ============================================================================
// backend/internal/shared/models.go
// Shared data models for portal documents and API payloads
// ============================================================================

package shared

import (
	"time"
)

// ============================================================================
// Account Models
// ============================================================================

// Account holds the fields common to every portal login (student, teacher,
// advisor, admin). Role-specific documents embed it.
type Account struct {
	ID           string    `bson:"_id" json:"_id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"` // Never expose in JSON
	DepartmentID string    `bson:"department_id,omitempty" json:"department_id,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// Student is a student account plus its course list
type Student struct {
	Account  `bson:",inline"`
	StudentID string   `bson:"student_id" json:"studentId"`
	Semester  string   `bson:"semester,omitempty" json:"semester,omitempty"`
	Courses   []string `bson:"courses" json:"courses"`
}

// HasCourse reports whether the student is enrolled in courseID
func (s *Student) HasCourse(courseID string) bool {
	for _, c := range s.Courses {
		if c == courseID {
			return true
		}
	}
	return false
}

// Teacher is a teacher account
type Teacher struct {
	Account `bson:",inline"`
}

// Advisor is an advisor account; advisors see students of their department
type Advisor struct {
	Account `bson:",inline"`
}

// Admin is an administrator account
type Admin struct {
	Account `bson:",inline"`
}

// ============================================================================
// Academic Models
// ============================================================================

// Department represents an academic department
type Department struct {
	ID           string    `bson:"_id" json:"_id"`
	DepartmentID string    `bson:"department_id" json:"department_id"`
	Name         string    `bson:"department_name" json:"department_name"`
	ImageLink    string    `bson:"image_link,omitempty" json:"image_link,omitempty"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// Course represents a course offering
type Course struct {
	ID            string    `bson:"_id" json:"_id"`
	CourseID      string    `bson:"course_id" json:"course_id"`
	CourseName    string    `bson:"course_name" json:"course_name"`
	CourseContent string    `bson:"course_content,omitempty" json:"course_content,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
}

// Assignment links a teacher to a course they teach
type Assignment struct {
	ID        string    `bson:"_id" json:"_id"`
	TeacherID string    `bson:"teacher_id" json:"teacher_id"`
	CourseID  string    `bson:"course_id" json:"course_id"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"` // denormalized course name
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Result is a numeric grade (0-100) for a student in a course.
// (student_id, course_id) is unique.
type Result struct {
	ID        string    `bson:"_id" json:"_id"`
	StudentID string    `bson:"student_id" json:"student_id"`
	CourseID  string    `bson:"course_id" json:"course_id"`
	Result    float64   `bson:"result" json:"result"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// Notice is an announcement published by an admin
type Notice struct {
	ID          string    `bson:"_id" json:"_id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// ============================================================================
// Roles & Constants
// ============================================================================

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdvisor = "advisor"
	RoleAdmin   = "admin"

	MinResult = 0
	MaxResult = 100
)

// IsValidRole checks if role is one of the portal roles
func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdvisor, RoleAdmin:
		return true
	}
	return false
}

// IsValidResult checks a numeric grade is within [MinResult, MaxResult]
func IsValidResult(v float64) bool {
	return v >= MinResult && v <= MaxResult
}
