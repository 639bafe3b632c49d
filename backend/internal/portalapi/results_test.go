package portalapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"uniportal/backend/internal/shared"
)

func TestPortal_Results(t *testing.T) {
	env := setupPortalTestEnv(t)
	teacher := env.login(t, "teacher", "teacher@uni.test")
	other := env.login(t, "teacher", "teacher2@uni.test")
	student := env.login(t, "student", "ana@uni.test")

	// --- Test 1: Create a result (POST /api/results) ---
	t.Run("Create Result", func(t *testing.T) {
		rr, resp := env.do(t, "POST", "/api/results", teacher, map[string]interface{}{"student_id": "2021001", "course_id": "CSE101", "result": 85})
		if rr.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rr.Code, resp.Message)
		}

		var res shared.Result
		json.Unmarshal(resp.Data, &res)
		if res.StudentID != "2021001" || res.Result != 85 {
			t.Errorf("Unexpected result: %+v", res)
		}
	})

	// --- Test 2: Duplicate create conflicts ---
	t.Run("Duplicate Result", func(t *testing.T) {
		rr, _ := env.do(t, "POST", "/api/results", teacher, map[string]interface{}{"student_id": "2021001", "course_id": "CSE101", "result": 70})
		if rr.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", rr.Code)
		}
	})

	// --- Test 3: Zero is a valid grade, out-of-range values are not ---
	t.Run("Result Range", func(t *testing.T) {
		rr, resp := env.do(t, "POST", "/api/results", teacher, map[string]interface{}{"student_id": "2021002", "course_id": "CSE101", "result": 101})
		if rr.Code != http.StatusBadRequest || resp.Message != "result must be at most 100" {
			t.Errorf("Expected 400 for 101, got %d %q", rr.Code, resp.Message)
		}

		rr, resp = env.do(t, "POST", "/api/results", teacher, map[string]interface{}{"student_id": "2021002", "course_id": "CSE101"})
		if rr.Code != http.StatusBadRequest || resp.Message != "result is required" {
			t.Errorf("Expected 400 for missing result, got %d %q", rr.Code, resp.Message)
		}

		rr, _ = env.do(t, "POST", "/api/results", teacher, map[string]interface{}{"student_id": "2021002", "course_id": "CSE101", "result": 0})
		if rr.Code != http.StatusCreated {
			t.Errorf("Expected 0 accepted, got %d", rr.Code)
		}
	})

	// --- Test 4: Student must be enrolled ---
	t.Run("Not Enrolled", func(t *testing.T) {
		rr, resp := env.do(t, "POST", "/api/results", teacher, map[string]interface{}{"student_id": "2021003", "course_id": "CSE101", "result": 50})
		if rr.Code != http.StatusBadRequest || resp.Message != "Student is not enrolled in this course" {
			t.Errorf("Expected 400, got %d %q", rr.Code, resp.Message)
		}
	})

	// --- Test 5: Teachers can only grade assigned courses ---
	t.Run("Unassigned Teacher", func(t *testing.T) {
		rr, _ := env.do(t, "PATCH", "/api/results/2021001/CSE101", other, map[string]interface{}{"result": 10})
		if rr.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", rr.Code)
		}

		rr, _ = env.do(t, "POST", "/api/results", student, map[string]interface{}{"student_id": "2021001", "course_id": "CSE101", "result": 100})
		if rr.Code != http.StatusForbidden {
			t.Errorf("Expected 403 for student, got %d", rr.Code)
		}
	})

	// --- Test 6: Update (PATCH /api/results/{studentId}/{courseId}) ---
	t.Run("Update Result", func(t *testing.T) {
		rr, resp := env.do(t, "PATCH", "/api/results/2021001/CSE101", teacher, map[string]interface{}{"result": 92.5})
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, resp.Message)
		}

		rr, resp = env.do(t, "GET", "/api/results", teacher, nil)
		var results []shared.Result
		json.Unmarshal(resp.Data, &results)
		found := false
		for _, r := range results {
			if r.StudentID == "2021001" && r.CourseID == "CSE101" {
				found = r.Result == 92.5
			}
		}
		if rr.Code != http.StatusOK || !found {
			t.Errorf("Expected updated result in list, got %s", resp.Data)
		}
	})

	// --- Test 7: Students read only their own results ---
	t.Run("Student Results", func(t *testing.T) {
		rr, resp := env.do(t, "GET", "/api/results/student/2021001", student, nil)
		var results []shared.Result
		json.Unmarshal(resp.Data, &results)
		if rr.Code != http.StatusOK || len(results) != 1 {
			t.Errorf("Expected own result, got %d %s", rr.Code, resp.Data)
		}

		rr, _ = env.do(t, "GET", "/api/results/student/2021002", student, nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("Expected 403 for another student's results, got %d", rr.Code)
		}
	})

	// --- Test 8: Delete, then delete again is 404 ---
	t.Run("Delete Result", func(t *testing.T) {
		rr, _ := env.do(t, "DELETE", "/api/results/2021001/CSE101", teacher, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}

		rr, resp := env.do(t, "DELETE", "/api/results/2021001/CSE101", teacher, nil)
		if rr.Code != http.StatusNotFound || resp.Message != "Result not found" {
			t.Errorf("Expected 404, got %d %q", rr.Code, resp.Message)
		}
	})
}
