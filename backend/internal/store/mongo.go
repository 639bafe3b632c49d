package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"uniportal/backend/internal/shared"
)

const queryTimeout = 5 * time.Second

// MongoStore persists the portal in one MongoDB database. Collections:
// students, teachers, advisors, admins, results, assigns, courses,
// departments, notices.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database

	studentsCol    *mongo.Collection
	resultsCol     *mongo.Collection
	assignsCol     *mongo.Collection
	coursesCol     *mongo.Collection
	departmentsCol *mongo.Collection
	noticesCol     *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects and ensures the unique indexes exist
func NewMongoStore(ctx context.Context, cfg *shared.MongoConfig) (*MongoStore, error) {
	client, db, err := shared.ConnectMongoDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &MongoStore{
		client:         client,
		db:             db,
		studentsCol:    db.Collection("students"),
		resultsCol:     db.Collection("results"),
		assignsCol:     db.Collection("assigns"),
		coursesCol:     db.Collection("courses"),
		departmentsCol: db.Collection("departments"),
		noticesCol:     db.Collection("notices"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		shared.DisconnectMongoDB(client)
		return nil, err
	}
	return s, nil
}

// Database exposes the underlying database (seeder, tests)
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

// Close disconnects from MongoDB
func (s *MongoStore) Close(ctx context.Context) error {
	return shared.DisconnectMongoDB(s.client)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		col  *mongo.Collection
		keys []string
	}{
		{s.studentsCol, []string{"student_id"}},
		{s.studentsCol, []string{"email"}},
		{s.db.Collection(roleCollection(shared.RoleTeacher)), []string{"email"}},
		{s.db.Collection(roleCollection(shared.RoleAdvisor)), []string{"email"}},
		{s.db.Collection(roleCollection(shared.RoleAdmin)), []string{"email"}},
		{s.resultsCol, []string{"student_id", "course_id"}},
		{s.assignsCol, []string{"teacher_id", "course_id"}},
		{s.coursesCol, []string{"course_id"}},
		{s.departmentsCol, []string{"department_id"}},
	}

	for _, idx := range indexes {
		if err := shared.EnsureUniqueIndex(ctx, idx.col, idx.keys...); err != nil {
			return err
		}
	}
	log.Println("INFO: MongoDB indexes ensured")
	return nil
}

// mapErr turns driver errors into the store's sentinels
func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func (s *MongoStore) insert(ctx context.Context, col *mongo.Collection, doc interface{}, what string) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := col.InsertOne(queryCtx, doc)
	return mapErr(err, what)
}

func (s *MongoStore) deleteOne(ctx context.Context, col *mongo.Collection, filter bson.M, what string) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := col.DeleteOne(queryCtx, filter)
	if err != nil {
		return mapErr(err, what)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// ============================================================================
// Accounts
// ============================================================================

func (s *MongoStore) accountsCol(role string) *mongo.Collection {
	return s.db.Collection(roleCollection(role))
}

func (s *MongoStore) CreateAccount(ctx context.Context, role string, acct *shared.Account) error {
	return s.insert(ctx, s.accountsCol(role), acct, role+" "+acct.Email)
}

func (s *MongoStore) FindAccountByEmail(ctx context.Context, role, email string) (*shared.Account, error) {
	var acct shared.Account
	err := shared.FindOneWithTimeout(ctx, s.accountsCol(role), bson.M{"email": email}, &acct, queryTimeout)
	if err != nil {
		return nil, mapErr(err, role+" "+email)
	}
	return &acct, nil
}

func (s *MongoStore) GetAccount(ctx context.Context, role, id string) (*shared.Account, error) {
	var acct shared.Account
	err := shared.FindOneWithTimeout(ctx, s.accountsCol(role), bson.M{"_id": id}, &acct, queryTimeout)
	if err != nil {
		return nil, mapErr(err, role+" "+id)
	}
	return &acct, nil
}

func (s *MongoStore) SetPasswordHash(ctx context.Context, role, id, hash string) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.accountsCol(role).UpdateOne(queryCtx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"password_hash": hash, "updated_at": time.Now()},
	})
	if err != nil {
		return mapErr(err, role+" "+id)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", role, id, ErrNotFound)
	}
	return nil
}

// ============================================================================
// Students
// ============================================================================

func (s *MongoStore) CreateStudent(ctx context.Context, st *shared.Student) error {
	if st.Courses == nil {
		st.Courses = []string{}
	}
	return s.insert(ctx, s.studentsCol, st, "student "+st.StudentID)
}

func (s *MongoStore) ListStudents(ctx context.Context, departmentID string) ([]shared.Student, error) {
	filter := bson.M{}
	if departmentID != "" {
		filter["department_id"] = departmentID
	}

	out := []shared.Student{}
	if err := shared.FindAll(ctx, s.studentsCol, filter, shared.BuildFindOptions(0, "student_id", 1), &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) GetStudent(ctx context.Context, studentID string) (*shared.Student, error) {
	var st shared.Student
	if err := shared.FindOneWithTimeout(ctx, s.studentsCol, bson.M{"student_id": studentID}, &st, queryTimeout); err != nil {
		return nil, mapErr(err, "student "+studentID)
	}
	return &st, nil
}

func (s *MongoStore) FindStudentByEmail(ctx context.Context, email string) (*shared.Student, error) {
	var st shared.Student
	if err := shared.FindOneWithTimeout(ctx, s.studentsCol, bson.M{"email": email}, &st, queryTimeout); err != nil {
		return nil, mapErr(err, "student "+email)
	}
	return &st, nil
}

func (s *MongoStore) AddStudentCourse(ctx context.Context, studentID, course string) (*shared.Student, error) {
	// The filter excludes students already holding the course so a miss
	// distinguishes duplicate from unknown below
	filter := bson.M{"student_id": studentID, "courses": bson.M{"$ne": course}}
	update := bson.M{
		"$push": bson.M{"courses": course},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	st, err := s.updateStudent(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		if _, getErr := s.GetStudent(ctx, studentID); getErr == nil {
			return nil, fmt.Errorf("student %s course %s: %w", studentID, course, ErrConflict)
		}
	}
	return st, err
}

func (s *MongoStore) RemoveStudentCourse(ctx context.Context, studentID, course string) (*shared.Student, error) {
	filter := bson.M{"student_id": studentID, "courses": course}
	update := bson.M{
		"$pull": bson.M{"courses": course},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	return s.updateStudent(ctx, filter, update)
}

func (s *MongoStore) updateStudent(ctx context.Context, filter, update bson.M) (*shared.Student, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var st shared.Student
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.studentsCol.FindOneAndUpdate(queryCtx, filter, update, opts).Decode(&st); err != nil {
		return nil, mapErr(err, fmt.Sprintf("student %v", filter["student_id"]))
	}
	return &st, nil
}

// ============================================================================
// Results
// ============================================================================

func (s *MongoStore) ListResults(ctx context.Context, studentID string) ([]shared.Result, error) {
	filter := bson.M{}
	if studentID != "" {
		filter["student_id"] = studentID
	}

	out := []shared.Result{}
	if err := shared.FindAll(ctx, s.resultsCol, filter, shared.BuildFindOptions(0, "student_id", 1), &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateResult(ctx context.Context, r *shared.Result) error {
	return s.insert(ctx, s.resultsCol, r, "result "+r.StudentID+"/"+r.CourseID)
}

func (s *MongoStore) UpdateResult(ctx context.Context, studentID, courseID string, value float64) (*shared.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var r shared.Result
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.resultsCol.FindOneAndUpdate(queryCtx,
		bson.M{"student_id": studentID, "course_id": courseID},
		bson.M{"$set": bson.M{"result": value, "updated_at": time.Now()}},
		opts,
	).Decode(&r)
	if err != nil {
		return nil, mapErr(err, "result "+studentID+"/"+courseID)
	}
	return &r, nil
}

func (s *MongoStore) DeleteResult(ctx context.Context, studentID, courseID string) error {
	return s.deleteOne(ctx, s.resultsCol, bson.M{"student_id": studentID, "course_id": courseID}, "result "+studentID+"/"+courseID)
}

// ============================================================================
// Assignments
// ============================================================================

func (s *MongoStore) ListAssignments(ctx context.Context, teacherID string) ([]shared.Assignment, error) {
	filter := bson.M{}
	if teacherID != "" {
		filter["teacher_id"] = teacherID
	}

	out := []shared.Assignment{}
	if err := shared.FindAll(ctx, s.assignsCol, filter, shared.BuildFindOptions(0, "created_at", 1), &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateAssignment(ctx context.Context, a *shared.Assignment) error {
	return s.insert(ctx, s.assignsCol, a, "assignment "+a.TeacherID+"/"+a.CourseID)
}

func (s *MongoStore) DeleteAssignment(ctx context.Context, teacherID, courseID string) error {
	return s.deleteOne(ctx, s.assignsCol, bson.M{"teacher_id": teacherID, "course_id": courseID}, "assignment "+teacherID+"/"+courseID)
}

// ============================================================================
// Catalog
// ============================================================================

func (s *MongoStore) CreateCourse(ctx context.Context, c *shared.Course) error {
	return s.insert(ctx, s.coursesCol, c, "course "+c.CourseID)
}

func (s *MongoStore) GetCourse(ctx context.Context, courseID string) (*shared.Course, error) {
	var c shared.Course
	if err := shared.FindOneWithTimeout(ctx, s.coursesCol, bson.M{"course_id": courseID}, &c, queryTimeout); err != nil {
		return nil, mapErr(err, "course "+courseID)
	}
	return &c, nil
}

func (s *MongoStore) ListCourses(ctx context.Context) ([]shared.Course, error) {
	out := []shared.Course{}
	if err := shared.FindAll(ctx, s.coursesCol, bson.M{}, shared.BuildFindOptions(0, "course_id", 1), &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateDepartment(ctx context.Context, d *shared.Department) error {
	return s.insert(ctx, s.departmentsCol, d, "department "+d.DepartmentID)
}

func (s *MongoStore) ListDepartments(ctx context.Context) ([]shared.Department, error) {
	out := []shared.Department{}
	if err := shared.FindAll(ctx, s.departmentsCol, bson.M{}, shared.BuildFindOptions(0, "department_id", 1), &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// Notices
// ============================================================================

func (s *MongoStore) ListNotices(ctx context.Context) ([]shared.Notice, error) {
	out := []shared.Notice{}
	if err := shared.FindAll(ctx, s.noticesCol, bson.M{}, shared.BuildFindOptions(0, "created_at", -1), &out, queryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateNotice(ctx context.Context, n *shared.Notice) error {
	return s.insert(ctx, s.noticesCol, n, "notice "+n.ID)
}

func (s *MongoStore) DeleteNotice(ctx context.Context, id string) error {
	return s.deleteOne(ctx, s.noticesCol, bson.M{"_id": id}, "notice "+id)
}
