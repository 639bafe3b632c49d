// Package portalapi is the REST collaborator the dashboards reconcile
// against: accounts, students, results, assignments, catalog and notices.
package portalapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"uniportal/backend/internal/portalapi/handlers"
	"uniportal/backend/internal/portalapi/util"
	"uniportal/backend/internal/shared"
	"uniportal/backend/internal/store"
)

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(st store.Store, cfg *shared.PortalConfig) *chi.Mux {
	r := chi.NewRouter()
	tokens := util.NewTokenManager(cfg.Security)

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	authHandler := &handlers.AuthHandler{Store: st, Tokens: tokens, BCryptCost: cfg.Security.BCryptCost}
	studentHandler := &handlers.StudentHandler{Store: st}
	resultHandler := &handlers.ResultHandler{Store: st}
	catalogHandler := &handlers.CatalogHandler{Store: st}
	noticeHandler := &handlers.NoticeHandler{Store: st}

	// 3. Define Routes (grouped by prefix)
	r.Route("/api", func(r chi.Router) {

		// --- Public Routes ---

		// Login, one endpoint per role
		for _, role := range []string{shared.RoleStudent, shared.RoleTeacher, shared.RoleAdvisor, shared.RoleAdmin} {
			r.Post("/"+role+"s/login", authHandler.Login(role))
		}
		r.Post("/students/register", authHandler.RegisterStudent)

		// Catalog (publicly viewable)
		r.Get("/courses", catalogHandler.ListCourses)
		r.Get("/courses/{id}", catalogHandler.GetCourse)
		r.Get("/departments/all", catalogHandler.ListDepartments)
		r.Get("/notices", noticeHandler.ListNotices)

		// --- Protected Routes (handlers check the role) ---
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens))

			// Accounts
			r.Post("/teachers/register", authHandler.RegisterAccount(shared.RoleTeacher))
			r.Post("/advisors/register", authHandler.RegisterAccount(shared.RoleAdvisor))
			r.Post("/admins/register", authHandler.RegisterAccount(shared.RoleAdmin))
			for _, role := range []string{shared.RoleStudent, shared.RoleTeacher, shared.RoleAdvisor, shared.RoleAdmin} {
				r.Patch("/"+role+"s/{id}/password", authHandler.ChangePassword(role))
			}

			// Students (advisor course editor)
			// Flat so they share a tree with the public /students/login
			r.Get("/students", studentHandler.ListStudents)
			r.Get("/students/{studentId}", studentHandler.GetStudent)
			r.Post("/students/{studentId}/course", studentHandler.AddCourse)
			r.Delete("/students/{studentId}/course", studentHandler.RemoveCourse)

			// Results (teacher gradebook)
			r.Route("/results", func(r chi.Router) {
				r.Get("/", resultHandler.ListResults)
				r.Post("/", resultHandler.CreateResult)
				r.Get("/student/{studentId}", resultHandler.ListStudentResults)
				r.Patch("/{studentId}/{courseId}", resultHandler.UpdateResult)
				r.Delete("/{studentId}/{courseId}", resultHandler.DeleteResult)
			})

			// Teacher assignments
			r.Route("/assigns", func(r chi.Router) {
				r.Get("/", catalogHandler.ListAssignments)
				r.Post("/", catalogHandler.CreateAssignment)
				r.Delete("/{teacherId}/{courseId}", catalogHandler.DeleteAssignment)
			})

			// Admin catalog management
			r.Post("/courses/add", catalogHandler.CreateCourse)
			r.Post("/departments/add", catalogHandler.CreateDepartment)
			r.Post("/notices", noticeHandler.CreateNotice)
			r.Delete("/notices/{id}", noticeHandler.DeleteNotice)
		})
	})

	return r
}

// AuthMiddleware verifies the bearer token and injects its claims into the
// request context. Requests without a token pass through unauthenticated so
// each handler decides which roles it accepts; a bad token is rejected.
func AuthMiddleware(tokens *util.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract Token
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}

			// 2. Validate signature, expiry and issuer
			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			// 3. Inject claims into Context
			next.ServeHTTP(w, r.WithContext(util.WithClaims(r.Context(), claims)))
		})
	}
}
