package main

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

// Seed accounts share one password
const (
	AdminID    = "adm-001"
	TeacherID1 = "tea-001"
	TeacherID2 = "tea-002"
	AdvisorID1 = "adv-001"
	AdvisorID2 = "adv-002"

	CommonPassword = "password"
)

// AccountSeed is a staff login
type AccountSeed struct {
	Role         string
	ID           string
	Name         string
	Email        string
	DepartmentID string
}

// StudentSeed is a student login with its course list
type StudentSeed struct {
	ID           string
	StudentID    string
	Name         string
	Email        string
	DepartmentID string
	Semester     string
	Courses      []string
}

func main() {
	log.Println("INFO: Starting Portal Database Seeder...")

	shared.LoadEnv(".env")
	mongoURI := shared.GetEnv("MONGO_URI", "")
	if mongoURI == "" {
		log.Fatalf("FATAL: MONGO_URI environment variable is required")
	}
	cfg := shared.DefaultMongoConfig(mongoURI, shared.GetEnv("MONGO_DB_NAME", "UniPortal"))

	// Drop everything to ensure a clean start
	client, db, err := shared.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("FATAL: connecting to MongoDB: %v", err)
	}
	if err := db.Drop(context.Background()); err != nil {
		log.Fatalf("FATAL: dropping database: %v", err)
	}
	shared.DisconnectMongoDB(client)
	log.Println("INFO: Database cleared successfully.")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	st, err := store.NewMongoStore(ctx, cfg)
	if err != nil {
		log.Fatalf("FATAL: opening store: %v", err)
	}
	defer st.Close(context.Background())

	hashed, err := bcrypt.GenerateFromPassword([]byte(CommonPassword), shared.GetIntEnv("BCRYPT_COST", 10))
	if err != nil {
		log.Fatalf("FATAL: hashing seed password: %v", err)
	}

	// --- 1. Catalog ---
	seedCatalog(ctx, st)

	// --- 2. Accounts ---
	seedAccounts(ctx, st, string(hashed), []AccountSeed{
		{shared.RoleAdmin, AdminID, "Super Admin", "admin@example.com", ""},
		{shared.RoleTeacher, TeacherID1, "Dr. Jane Professor", "teacher@example.com", "CSE"},
		{shared.RoleTeacher, TeacherID2, "Prof. Alan Turing", "teacher2@example.com", "MATH"},
		{shared.RoleAdvisor, AdvisorID1, "Grace Hopper", "advisor@example.com", "CSE"},
		{shared.RoleAdvisor, AdvisorID2, "Emmy Noether", "advisor2@example.com", "MATH"},
	})
	seedStudents(ctx, st, string(hashed), []StudentSeed{
		{"stu-001", "202400001", "John Student", "student@example.com", "CSE", "1", []string{"CSE101", "MATH101"}},
		{"stu-002", "202400002", "Alice Wonderland", "student2@example.com", "CSE", "3", []string{"CSE101", "CSE201"}},
		{"stu-003", "202400003", "Bob Builder", "student3@example.com", "MATH", "2", []string{"MATH101"}},
	})

	// --- 3. Teaching assignments ---
	seedAssignments(ctx, st, map[string][]string{
		TeacherID1: {"CSE101", "CSE201"},
		TeacherID2: {"MATH101"},
	})

	// --- 4. Results ---
	for _, r := range []shared.Result{
		{StudentID: "202400002", CourseID: "CSE101", Result: 88},
		{StudentID: "202400003", CourseID: "MATH101", Result: 0},
	} {
		r := r
		r.ID = shared.GenerateID("res")
		r.CreatedAt = time.Now()
		if err := st.CreateResult(ctx, &r); err != nil {
			log.Fatalf("FATAL: seeding result %s/%s: %v", r.StudentID, r.CourseID, err)
		}
		log.Printf("INFO: Seeded Result: %s in %s = %g", r.StudentID, r.CourseID, r.Result)
	}

	// --- 5. Notices ---
	if err := st.CreateNotice(ctx, &shared.Notice{
		ID:          shared.GenerateID("ntc"),
		Title:       "Welcome",
		Description: "The portal is open for the new semester.",
		CreatedAt:   time.Now(),
	}); err != nil {
		log.Fatalf("FATAL: seeding notice: %v", err)
	}

	log.Println("INFO: All data seeding completed successfully.")
}

// ============================================================================
// SEEDING FUNCTIONS
// ============================================================================

func seedCatalog(ctx context.Context, st store.Store) {
	log.Println("--- Seeding Departments & Courses ---")
	now := time.Now()

	for _, d := range []shared.Department{
		{DepartmentID: "CSE", Name: "Computer Science & Engineering", Description: "Software, systems and theory."},
		{DepartmentID: "MATH", Name: "Mathematics", Description: "Pure and applied mathematics."},
	} {
		d := d
		d.ID, d.CreatedAt = shared.GenerateID("dep"), now
		if err := st.CreateDepartment(ctx, &d); err != nil {
			log.Fatalf("FATAL: seeding department %s: %v", d.DepartmentID, err)
		}
		log.Printf("INFO: Seeded Department: %s", d.DepartmentID)
	}

	for _, c := range []shared.Course{
		{CourseID: "CSE101", CourseName: "Introduction to Programming"},
		{CourseID: "CSE201", CourseName: "Data Structures & Algorithms"},
		{CourseID: "MATH101", CourseName: "Calculus I"},
	} {
		c := c
		c.ID, c.CreatedAt = shared.GenerateID("crs"), now
		if err := st.CreateCourse(ctx, &c); err != nil {
			log.Fatalf("FATAL: seeding course %s: %v", c.CourseID, err)
		}
		log.Printf("INFO: Seeded Course: %s", c.CourseID)
	}
}

func seedAccounts(ctx context.Context, st store.Store, hash string, seeds []AccountSeed) {
	log.Println("--- Seeding Staff ---")

	for _, s := range seeds {
		acct := &shared.Account{
			ID:           s.ID,
			Name:         s.Name,
			Email:        s.Email,
			PasswordHash: hash,
			DepartmentID: s.DepartmentID,
			CreatedAt:    time.Now(),
		}
		if err := st.CreateAccount(ctx, s.Role, acct); err != nil {
			log.Fatalf("FATAL: seeding %s %s: %v", s.Role, s.Email, err)
		}
		log.Printf("INFO: Seeded %s: %s", s.Role, s.Email)
	}
}

func seedStudents(ctx context.Context, st store.Store, hash string, seeds []StudentSeed) {
	log.Println("--- Seeding Students ---")

	for _, s := range seeds {
		student := &shared.Student{
			Account: shared.Account{
				ID:           s.ID,
				Name:         s.Name,
				Email:        s.Email,
				PasswordHash: hash,
				DepartmentID: s.DepartmentID,
				CreatedAt:    time.Now(),
			},
			StudentID: s.StudentID,
			Semester:  s.Semester,
			Courses:   s.Courses,
		}
		if err := st.CreateStudent(ctx, student); err != nil {
			log.Fatalf("FATAL: seeding student %s: %v", s.Email, err)
		}
		log.Printf("INFO: Seeded student: %s (%s)", s.Email, s.StudentID)
	}
}

func seedAssignments(ctx context.Context, st store.Store, byTeacher map[string][]string) {
	log.Println("--- Seeding Assignments ---")

	for teacherID, courses := range byTeacher {
		for _, courseID := range courses {
			course, err := st.GetCourse(ctx, courseID)
			if err != nil {
				log.Fatalf("FATAL: assignment course %s: %v", courseID, err)
			}
			a := &shared.Assignment{
				ID:        shared.GenerateID("asg"),
				TeacherID: teacherID,
				CourseID:  courseID,
				Name:      course.CourseName,
				CreatedAt: time.Now(),
			}
			if err := st.CreateAssignment(ctx, a); err != nil {
				log.Fatalf("FATAL: seeding assignment %s/%s: %v", teacherID, courseID, err)
			}
			log.Printf("INFO: Assigned %s to %s", courseID, teacherID)
		}
	}
}
