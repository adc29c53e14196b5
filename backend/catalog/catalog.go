// Package catalog is the read-only view over published course content.
// The content itself is authored elsewhere and seeded into the database;
// this service only looks things up and computes totals.
package catalog

import (
	"errors"

	"skillpath/backend/models"

	"gorm.io/gorm"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrQuizNotFound   = errors.New("quiz not found")
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// CourseBySlug loads a course with its full chapter/lesson/part structure,
// ordered the way the content was authored.
func (s *Service) CourseBySlug(slug string) (*models.Course, error) {
	var course models.Course
	err := s.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Chapters.Lessons.Parts", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Chapters.Lessons.Parts.Exercise").
		Where("slug = ?", slug).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (s *Service) CourseByID(id uint) (*models.Course, error) {
	var course models.Course
	err := s.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Chapters.Lessons.Parts", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Chapters.Lessons.Parts.Exercise").
		First(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (s *Service) QuizBySlug(slug string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Where("slug = ?", slug).
		First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// QuizzesForCourse returns every quiz belonging to a course: lesson
// quizzes, chapter quizzes and the final exam, without questions.
func (s *Service) QuizzesForCourse(courseID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := s.DB.Where("course_id = ?", courseID).Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (s *Service) ListCourses() ([]models.Course, error) {
	var courses []models.Course
	err := s.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Order("id").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

// TotalLessons counts lessons across all chapters of a loaded course.
func TotalLessons(course *models.Course) int {
	total := 0
	for _, ch := range course.Chapters {
		total += len(ch.Lessons)
	}
	return total
}

// TotalDuration sums lesson durations (minutes) for display aggregates.
func TotalDuration(course *models.Course) int {
	total := 0
	for _, ch := range course.Chapters {
		for _, l := range ch.Lessons {
			total += l.DurationMinutes
		}
	}
	return total
}
