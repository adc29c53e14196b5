package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"skillpath/backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Seed file shapes. Content is authored outside this service and loaded
// at startup; slugs are the stable identifiers across reloads.

type seedFile struct {
	Courses []seedCourse `json:"courses"`
}

type seedCourse struct {
	Slug         string        `json:"slug"`
	Title        string        `json:"title"`
	ShortDesc    string        `json:"short_desc"`
	Description  string        `json:"description"`
	BadgeName    string        `json:"badge_name"`
	BadgeIconURL string        `json:"badge_icon_url"`
	Chapters     []seedChapter `json:"chapters"`
	Exam         *seedQuiz     `json:"exam"`
}

type seedChapter struct {
	Title   string       `json:"title"`
	Lessons []seedLesson `json:"lessons"`
	Quiz    *seedQuiz    `json:"quiz"`
}

type seedLesson struct {
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	Parts           []seedPart `json:"parts"`
	Quiz            *seedQuiz  `json:"quiz"`
}

type seedPart struct {
	Body     string        `json:"body"`
	Exercise *seedExercise `json:"exercise"`
}

type seedExercise struct {
	Prompt string `json:"prompt"`
	Points int    `json:"points"`
}

type seedQuiz struct {
	Slug         string         `json:"slug"`
	PassingScore float64        `json:"passing_score"`
	Questions    []seedQuestion `json:"questions"`
}

type seedQuestion struct {
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correct_answer"`
	CorrectAnswers []string `json:"correct_answers"`
	Points         int      `json:"points"`
}

// Seed loads the catalog JSON at path into the database. Courses whose
// slug already exists are left untouched; the catalog is immutable once
// published.
func Seed(db *gorm.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}

	var file seedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse catalog file: %w", err)
	}

	for _, sc := range file.Courses {
		var count int64
		if err := db.Model(&models.Course{}).Where("slug = ?", sc.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			return insertCourse(tx, sc)
		}); err != nil {
			return fmt.Errorf("seed course %s: %w", sc.Slug, err)
		}
	}
	return nil
}

func insertCourse(tx *gorm.DB, sc seedCourse) error {
	course := models.Course{
		Slug:         sc.Slug,
		Title:        sc.Title,
		ShortDesc:    sc.ShortDesc,
		Description:  sc.Description,
		BadgeName:    sc.BadgeName,
		BadgeIconURL: sc.BadgeIconURL,
	}
	if err := tx.Create(&course).Error; err != nil {
		return err
	}

	for ci, schap := range sc.Chapters {
		chapter := models.Chapter{
			CourseID:      course.ID,
			Title:         schap.Title,
			SequenceOrder: ci + 1,
		}
		if err := tx.Create(&chapter).Error; err != nil {
			return err
		}

		for li, sl := range schap.Lessons {
			lesson := models.Lesson{
				ChapterID:       chapter.ID,
				Slug:            sl.Slug,
				Title:           sl.Title,
				DurationMinutes: sl.DurationMinutes,
				SequenceOrder:   li + 1,
			}
			if err := tx.Create(&lesson).Error; err != nil {
				return err
			}

			for pi, sp := range sl.Parts {
				part := models.Part{
					LessonID:      lesson.ID,
					SequenceOrder: pi + 1,
					Body:          sp.Body,
				}
				if err := tx.Create(&part).Error; err != nil {
					return err
				}
				if sp.Exercise != nil {
					ex := models.Exercise{
						PartID: part.ID,
						Prompt: sp.Exercise.Prompt,
						Points: sp.Exercise.Points,
					}
					if err := tx.Create(&ex).Error; err != nil {
						return err
					}
				}
			}

			if sl.Quiz != nil {
				lessonID := lesson.ID
				if err := insertQuiz(tx, *sl.Quiz, models.QuizKindLesson, course.ID, &chapter.ID, &lessonID); err != nil {
					return err
				}
			}
		}

		if schap.Quiz != nil {
			if err := insertQuiz(tx, *schap.Quiz, models.QuizKindChapter, course.ID, &chapter.ID, nil); err != nil {
				return err
			}
		}
	}

	if sc.Exam != nil {
		if err := insertQuiz(tx, *sc.Exam, models.QuizKindFinal, course.ID, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func insertQuiz(tx *gorm.DB, sq seedQuiz, kind string, courseID uint, chapterID, lessonID *uint) error {
	passing := sq.PassingScore
	if passing == 0 {
		passing = 70
	}
	quiz := models.Quiz{
		Slug:         sq.Slug,
		Kind:         kind,
		CourseID:     courseID,
		ChapterID:    chapterID,
		LessonID:     lessonID,
		PassingScore: passing,
	}
	if err := tx.Create(&quiz).Error; err != nil {
		return err
	}

	for qi, sqn := range sq.Questions {
		qType := sqn.Type
		// Content authored as drag-and-drop carries a prose correct answer;
		// it is stored and scored as short-answer.
		if qType == "drag-and-drop" {
			qType = models.QuestionShortAnswer
		}
		points := sqn.Points
		if points == 0 {
			points = 1
		}

		question := models.Question{
			QuizID:        quiz.ID,
			SequenceOrder: qi + 1,
			Type:          qType,
			Prompt:        sqn.Prompt,
			CorrectAnswer: sqn.CorrectAnswer,
			Points:        points,
		}
		if len(sqn.Options) > 0 {
			raw, err := json.Marshal(sqn.Options)
			if err != nil {
				return err
			}
			question.Options = datatypes.JSON(raw)
		}
		if len(sqn.CorrectAnswers) > 0 {
			raw, err := json.Marshal(sqn.CorrectAnswers)
			if err != nil {
				return err
			}
			question.CorrectAnswers = datatypes.JSON(raw)
		}
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
	}
	return nil
}
