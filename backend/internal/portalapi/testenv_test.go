package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

const testPassword = "password123"

// TestEnv holds the running router and the store behind it
type TestEnv struct {
	Router http.Handler
	Store  *store.MemoryStore
}

// setupPortalTestEnv spins up the full router over a seeded MemoryStore.
//
// Seed:
//   - admin adm_1, teacher tea_1 (assigned CSE101), advisor adv_1 (CSE dept)
//   - students 2021001 (CSE: CSE101), 2021002 (CSE: CSE101, CSE102),
//     2021003 (MATH: MAT201)
func setupPortalTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	now := time.Now()

	accounts := []struct {
		role string
		acct shared.Account
	}{
		{shared.RoleAdmin, shared.Account{ID: "adm_1", Name: "Admin", Email: "admin@uni.test"}},
		{shared.RoleTeacher, shared.Account{ID: "tea_1", Name: "Teacher One", Email: "teacher@uni.test"}},
		{shared.RoleTeacher, shared.Account{ID: "tea_2", Name: "Teacher Two", Email: "teacher2@uni.test"}},
		{shared.RoleAdvisor, shared.Account{ID: "adv_1", Name: "Advisor", Email: "advisor@uni.test", DepartmentID: "CSE"}},
	}
	for _, a := range accounts {
		acct := a.acct
		acct.PasswordHash = string(hash)
		acct.CreatedAt = now
		if err := st.CreateAccount(ctx, a.role, &acct); err != nil {
			t.Fatalf("seed %s failed: %v", a.role, err)
		}
	}

	students := []shared.Student{
		{Account: shared.Account{ID: "stu_1", Name: "Ana", Email: "ana@uni.test", DepartmentID: "CSE"}, StudentID: "2021001", Semester: "3", Courses: []string{"CSE101"}},
		{Account: shared.Account{ID: "stu_2", Name: "Ben", Email: "ben@uni.test", DepartmentID: "CSE"}, StudentID: "2021002", Semester: "3", Courses: []string{"CSE101", "CSE102"}},
		{Account: shared.Account{ID: "stu_3", Name: "Cy", Email: "cy@uni.test", DepartmentID: "MATH"}, StudentID: "2021003", Semester: "5", Courses: []string{"MAT201"}},
	}
	for i := range students {
		students[i].PasswordHash = string(hash)
		students[i].CreatedAt = now
		if err := st.CreateStudent(ctx, &students[i]); err != nil {
			t.Fatalf("seed student failed: %v", err)
		}
	}

	for _, c := range []shared.Course{
		{ID: "crs_1", CourseID: "CSE101", CourseName: "Intro to Programming"},
		{ID: "crs_2", CourseID: "CSE102", CourseName: "Data Structures"},
		{ID: "crs_3", CourseID: "MAT201", CourseName: "Linear Algebra"},
	} {
		c := c
		if err := st.CreateCourse(ctx, &c); err != nil {
			t.Fatalf("seed course failed: %v", err)
		}
	}
	if err := st.CreateAssignment(ctx, &shared.Assignment{ID: "asg_1", TeacherID: "tea_1", CourseID: "CSE101", Name: "Intro to Programming"}); err != nil {
		t.Fatalf("seed assignment failed: %v", err)
	}

	cfg := &shared.PortalConfig{
		RequestTimeout: 5 * time.Second,
		Security:       shared.SecurityConfig{JWTSecret: "test-secret", JWTExpirationHours: 1, BCryptCost: bcrypt.MinCost},
		CORS: shared.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		},
	}

	return &TestEnv{Router: SetupRoutes(st, cfg), Store: st}
}

// apiResponse is the portal envelope as the tests read it
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Notices json.RawMessage `json:"notices"`
}

func (env *TestEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	env.Router.ServeHTTP(rr, req)

	var resp apiResponse
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: invalid JSON body %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr, resp
}

func (env *TestEnv) login(t *testing.T, role, email string) string {
	t.Helper()

	rr, resp := env.do(t, "POST", "/api/"+role+"s/login", "", map[string]string{"email": email, "password": testPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s failed: %d %s", email, rr.Code, resp.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login %s returned no token: %s", email, resp.Data)
	}
	return data.Token
}
