package controllers

import (
	"errors"
	"log"

	"skillpath/backend/catalog"
	"skillpath/backend/middleware"
	"skillpath/backend/progression"
	"skillpath/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressionController struct {
	Engine *progression.Engine
	Logger *log.Logger
}

func NewProgressionController(engine *progression.Engine, logger *log.Logger) *ProgressionController {
	return &ProgressionController{Engine: engine, Logger: logger}
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags progression
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/enroll [post]
func (pc *ProgressionController) Enroll(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	enrollment, err := pc.Engine.Enroll(userID, c.Params("slug"))
	if err != nil {
		return pc.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Enrolled",
		"progress": fiber.Map{
			"current_chapter":       enrollment.CurrentChapter,
			"current_lesson":        enrollment.CurrentLesson,
			"completion_percentage": enrollment.CompletionPercentage,
			"completed":             enrollment.Completed,
		},
	})
}

// CompleteLesson godoc
// @Summary Complete the current lesson
// @Description Marks the lesson done, advances the position and returns the reward payload
// @Tags progression
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/lessons/complete [post]
func (pc *ProgressionController) CompleteLesson(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var input struct {
		Chapter        int  `json:"chapter"`
		Lesson         int  `json:"lesson"`
		ExercisePassed bool `json:"exercise_passed"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	outcome, err := pc.Engine.CompleteLesson(userID, c.Params("slug"), input.Chapter, input.Lesson, input.ExercisePassed)
	if err != nil {
		return pc.respondError(c, err)
	}

	return c.JSON(notification(outcome, "Lesson completed"))
}

// GetProgress godoc
// @Summary Progress summary
// @Tags progression
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/progress [get]
func (pc *ProgressionController) GetProgress(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	enrollment, err := pc.Engine.Summary(userID, c.Params("slug"))
	if err != nil {
		return pc.respondError(c, err)
	}

	state, err := enrollment.ProgressState()
	if err != nil {
		return utils.InternalServerError(c, "Could not decode progress")
	}

	return c.JSON(fiber.Map{
		"progress": fiber.Map{
			"current_chapter":       enrollment.CurrentChapter,
			"current_lesson":        enrollment.CurrentLesson,
			"completion_percentage": enrollment.CompletionPercentage,
			"completed":             enrollment.Completed,
			"chapters":              state.Chapters,
			"exam_passed":           state.ExamPassed,
		},
	})
}

// notification builds the reward payload returned in the response body.
func notification(o *progression.Outcome, message string) fiber.Map {
	return fiber.Map{
		"message":               message,
		"xp_gained":             o.Reward.XP,
		"gems_gained":           o.Reward.Gems,
		"level_up":              o.LeveledUp,
		"level":                 o.Totals.Level,
		"completion_percentage": o.Progress.CompletionPercentage,
		"completed":             o.Progress.Completed,
	}
}

// respondError maps the engine's error taxonomy to HTTP. Position errors
// get a deliberately vague message and a log line; they mean a client bug
// or tampering.
func (pc *ProgressionController) respondError(c *fiber.Ctx, err error) error {
	var quotaErr *progression.QuotaExceededError
	switch {
	case errors.Is(err, catalog.ErrCourseNotFound):
		return utils.NotFound(c, "Course not found")
	case errors.Is(err, catalog.ErrQuizNotFound):
		return utils.NotFound(c, "Quiz not found")
	case errors.Is(err, progression.ErrAlreadyEnrolled):
		return utils.Conflict(c, "Already enrolled in this course")
	case errors.Is(err, progression.ErrNotEnrolled):
		return utils.Forbidden(c, "Enroll in the course first")
	case errors.Is(err, progression.ErrInvalidPosition):
		pc.Logger.Printf("invalid position: user=%d path=%s: %v", middleware.UserID(c), c.Path(), err)
		return utils.BadRequest(c, "Something went wrong")
	case errors.As(err, &quotaErr):
		return utils.Error(c, fiber.StatusTooManyRequests, "Daily quiz limit reached, come back tomorrow", fiber.Map{
			"max_allowed": quotaErr.MaxAllowed,
			"resets_at":   quotaErr.ResetsAt,
		})
	case errors.Is(err, progression.ErrVersionConflict):
		return utils.Error(c, fiber.StatusServiceUnavailable, "Please retry")
	default:
		pc.Logger.Printf("unexpected error: user=%d path=%s: %v", middleware.UserID(c), c.Path(), err)
		return utils.InternalServerError(c, "Something went wrong")
	}
}
