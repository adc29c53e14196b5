package controllers

import (
	"log"

	"skillpath/backend/catalog"
	"skillpath/backend/middleware"
	"skillpath/backend/progression"
	"skillpath/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type QuizController struct {
	Engine  *progression.Engine
	Catalog *catalog.Service
	Logger  *log.Logger
}

func NewQuizController(engine *progression.Engine, cat *catalog.Service, logger *log.Logger) *QuizController {
	return &QuizController{Engine: engine, Catalog: cat, Logger: logger}
}

// GetQuiz godoc
// @Summary Quiz questions
// @Description Returns the questions to answer. Correct answers are withheld.
// @Tags quizzes
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{slug} [get]
func (qc *QuizController) GetQuiz(c *fiber.Ctx) error {
	quiz, err := qc.Catalog.QuizBySlug(c.Params("slug"))
	if err != nil {
		if err == catalog.ErrQuizNotFound {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query catalog")
	}

	questions := make([]fiber.Map, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		entry := fiber.Map{
			"id":     q.ID,
			"type":   q.Type,
			"prompt": q.Prompt,
			"points": q.Points,
		}
		if len(q.Options) > 0 {
			entry["options"] = q.Options
		}
		questions = append(questions, entry)
	}

	return c.JSON(fiber.Map{
		"quiz": fiber.Map{
			"slug":          quiz.Slug,
			"kind":          quiz.Kind,
			"passing_score": quiz.PassingScore,
			"questions":     questions,
		},
	})
}

// SubmitQuiz godoc
// @Summary Submit quiz answers
// @Description Scores the submission and, on a first pass, credits the reward
// @Tags quizzes
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 429 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{slug}/submit [post]
func (qc *QuizController) SubmitQuiz(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var input struct {
		Answers []progression.Answer `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	outcome, result, err := qc.Engine.SubmitQuiz(userID, c.Params("slug"), input.Answers)
	if err != nil {
		pc := ProgressionController{Engine: qc.Engine, Logger: qc.Logger}
		return pc.respondError(c, err)
	}

	message := "Quiz passed"
	if !result.Passed {
		message = "Quiz failed, try again"
	}

	payload := notification(outcome, message)
	payload["result"] = fiber.Map{
		"score_percent":   result.ScorePercent,
		"passed":          result.Passed,
		"points_earned":   result.PointsEarned,
		"points_possible": result.PointsPossible,
		"correct":         result.CorrectCount,
		"total_questions": result.TotalQuestions,
	}
	return c.JSON(payload)
}
