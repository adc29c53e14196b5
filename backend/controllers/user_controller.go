package controllers

import (
	"skillpath/backend/middleware"
	"skillpath/backend/models"
	"skillpath/backend/store"
	"skillpath/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserController struct {
	DB    *gorm.DB
	Store *store.Store
}

func NewUserController(db *gorm.DB, st *store.Store) *UserController {
	return &UserController{DB: db, Store: st}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the profile with reward totals and active enrollments
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	totals, err := uc.Store.GetTotals(userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not load totals")
	}

	var enrollments []models.Enrollment
	uc.DB.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&enrollments)

	courses := make([]fiber.Map, 0, len(enrollments))
	for _, e := range enrollments {
		courses = append(courses, fiber.Map{
			"course_id":             e.CourseID,
			"completion_percentage": e.CompletionPercentage,
			"completed":             e.Completed,
			"current_chapter":       e.CurrentChapter,
			"current_lesson":        e.CurrentLesson,
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"tier":     user.Tier,
		"xp":       totals.XP,
		"gems":     totals.Gems,
		"level":    totals.Level,
		"courses":  courses,
	})
}
