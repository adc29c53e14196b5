package controllers

import (
	"skillpath/backend/catalog"
	"skillpath/backend/middleware"
	"skillpath/backend/models"
	"skillpath/backend/store"
	"skillpath/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type CoursesController struct {
	Catalog *catalog.Service
	Store   *store.Store
}

func NewCoursesController(cat *catalog.Service, st *store.Store) *CoursesController {
	return &CoursesController{Catalog: cat, Store: st}
}

// GetAvailableCourses godoc
// @Summary List courses
// @Description Returns the published catalog with totals and the caller's completion percentage
// @Tags courses
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Security ApiKeyAuth
// @Router /courses [get]
func (cc *CoursesController) GetAvailableCourses(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	courses, err := cc.Catalog.ListCourses()
	if err != nil {
		return utils.InternalServerError(c, "Could not query catalog")
	}

	result := make([]fiber.Map, 0, len(courses))
	for i := range courses {
		course := &courses[i]
		entry := fiber.Map{
			"id":               course.ID,
			"slug":             course.Slug,
			"title":            course.Title,
			"short_desc":       course.ShortDesc,
			"chapters":         len(course.Chapters),
			"lessons":          catalog.TotalLessons(course),
			"duration_minutes": catalog.TotalDuration(course),
			"enrolled_count":   course.EnrolledCount,
		}

		enrollment, err := cc.Store.GetEnrollment(userID, course.ID)
		if err == nil && enrollment != nil {
			entry["enrolled"] = true
			entry["completion_percentage"] = enrollment.CompletionPercentage
			entry["completed"] = enrollment.Completed
		} else {
			entry["enrolled"] = false
		}
		result = append(result, entry)
	}

	return c.JSON(result)
}

// GetCourseDetails godoc
// @Summary Course detail
// @Description Returns the chapter/lesson structure of one course
// @Tags courses
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	course, err := cc.Catalog.CourseBySlug(c.Params("slug"))
	if err != nil {
		if err == catalog.ErrCourseNotFound {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query catalog")
	}

	quizzes, err := cc.Catalog.QuizzesForCourse(course.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not query catalog")
	}

	chapters := make([]fiber.Map, 0, len(course.Chapters))
	for ci, ch := range course.Chapters {
		lessons := make([]fiber.Map, 0, len(ch.Lessons))
		for li, l := range ch.Lessons {
			lessons = append(lessons, fiber.Map{
				"slug":             l.Slug,
				"title":            l.Title,
				"duration_minutes": l.DurationMinutes,
				"parts":            len(l.Parts),
				"quiz":             quizSlugFor(quizzes, models.QuizKindLesson, ch.ID, l.ID),
				"index":            li,
			})
		}
		chapters = append(chapters, fiber.Map{
			"title":   ch.Title,
			"index":   ci,
			"lessons": lessons,
			"quiz":    quizSlugFor(quizzes, models.QuizKindChapter, ch.ID, 0),
		})
	}

	return c.JSON(fiber.Map{
		"course": fiber.Map{
			"id":               course.ID,
			"slug":             course.Slug,
			"title":            course.Title,
			"description":      course.Description,
			"badge_name":       course.BadgeName,
			"badge_icon_url":   course.BadgeIconURL,
			"enrolled_count":   course.EnrolledCount,
			"duration_minutes": catalog.TotalDuration(course),
			"chapters":         chapters,
			"exam":             examSlugFor(quizzes),
		},
	})
}

func quizSlugFor(quizzes []models.Quiz, kind string, chapterID, lessonID uint) interface{} {
	for _, q := range quizzes {
		if q.Kind != kind {
			continue
		}
		if q.ChapterID == nil || *q.ChapterID != chapterID {
			continue
		}
		if kind == models.QuizKindLesson {
			if q.LessonID == nil || *q.LessonID != lessonID {
				continue
			}
		}
		return q.Slug
	}
	return nil
}

func examSlugFor(quizzes []models.Quiz) interface{} {
	for _, q := range quizzes {
		if q.Kind == models.QuizKindFinal {
			return q.Slug
		}
	}
	return nil
}
