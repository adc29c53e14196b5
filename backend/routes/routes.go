package routes

import (
	"log"

	"skillpath/backend/catalog"
	"skillpath/backend/config"
	"skillpath/backend/controllers"
	"skillpath/backend/middleware"
	"skillpath/backend/progression"
	"skillpath/backend/quota"
	"skillpath/backend/rewards"
	"skillpath/backend/store"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	st := store.New(db)
	cat := catalog.NewService(db)
	qm := quota.NewManager(st)

	levels, err := rewards.ParseLevels(cfg.LevelThresholds)
	if err != nil {
		logger.Printf("invalid LEVEL_THRESHOLDS %q, using defaults: %v", cfg.LevelThresholds, err)
		levels = rewards.DefaultLevels
	}
	engine := progression.NewEngine(cat, st, qm, levels)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	authMiddleware := middleware.AuthMiddleware(cfg)

	// User routes
	userController := controllers.NewUserController(db, st)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)

	// Catalog routes
	coursesController := controllers.NewCoursesController(cat, st)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetAvailableCourses)
	courses.Get("/:slug", coursesController.GetCourseDetails)

	// Progression routes
	progressionController := controllers.NewProgressionController(engine, logger)
	courses.Post("/:slug/enroll", progressionController.Enroll)
	courses.Post("/:slug/lessons/complete", progressionController.CompleteLesson)
	courses.Get("/:slug/progress", progressionController.GetProgress)

	// Quiz routes
	quizController := controllers.NewQuizController(engine, cat, logger)
	app.Get("/api/quizzes/:slug", authMiddleware, quizController.GetQuiz)
	app.Post("/api/quizzes/:slug/submit", authMiddleware, quizController.SubmitQuiz)
}
