package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChapterState tracks which lessons and quizzes inside one chapter the
// user has finished. Keys are zero-based sequence indices.
type ChapterState struct {
	Lessons       map[int]bool `json:"lessons"`
	LessonQuizzes map[int]bool `json:"lesson_quizzes"`
	QuizPassed    bool         `json:"quiz_passed"`
}

// ProgressState is the per-course completion fact base. Everything else
// on Enrollment (percentage, completed flag, pointers) is derived from it
// plus the catalog structure.
type ProgressState struct {
	Chapters   map[int]*ChapterState `json:"chapters"`
	ExamPassed bool                  `json:"exam_passed"`
}

func NewProgressState() *ProgressState {
	return &ProgressState{Chapters: make(map[int]*ChapterState)}
}

// Chapter returns the state for a chapter index, creating it on first use.
func (ps *ProgressState) Chapter(idx int) *ChapterState {
	if ps.Chapters == nil {
		ps.Chapters = make(map[int]*ChapterState)
	}
	ch, ok := ps.Chapters[idx]
	if !ok {
		ch = &ChapterState{
			Lessons:       make(map[int]bool),
			LessonQuizzes: make(map[int]bool),
		}
		ps.Chapters[idx] = ch
	}
	if ch.Lessons == nil {
		ch.Lessons = make(map[int]bool)
	}
	if ch.LessonQuizzes == nil {
		ch.LessonQuizzes = make(map[int]bool)
	}
	return ch
}

func (ps *ProgressState) LessonCompleted(chapterIdx, lessonIdx int) bool {
	if ps.Chapters == nil {
		return false
	}
	ch, ok := ps.Chapters[chapterIdx]
	if !ok || ch.Lessons == nil {
		return false
	}
	return ch.Lessons[lessonIdx]
}

// Enrollment relates a user to a course and carries the progress
// aggregate. Version backs optimistic concurrency: every committed
// update bumps it, and writers must present the version they read.
type Enrollment struct {
	gorm.Model
	UserID               uint    `gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID             uint    `gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CurrentChapter       int     `gorm:"default:0"`
	CurrentLesson        int     `gorm:"default:0"`
	Completed            bool    `gorm:"default:false"`
	CompletionPercentage float64 `gorm:"default:0"`
	State                datatypes.JSON `gorm:"type:jsonb"`
	Version              int            `gorm:"default:0"`
}

// ProgressState decodes the serialized state column. A missing or empty
// column yields a fresh zero state.
func (e *Enrollment) ProgressState() (*ProgressState, error) {
	if len(e.State) == 0 {
		return NewProgressState(), nil
	}
	var ps ProgressState
	if err := json.Unmarshal(e.State, &ps); err != nil {
		return nil, err
	}
	if ps.Chapters == nil {
		ps.Chapters = make(map[int]*ChapterState)
	}
	return &ps, nil
}

func (e *Enrollment) SetProgressState(ps *ProgressState) error {
	raw, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	e.State = datatypes.JSON(raw)
	return nil
}

// DailyQuizUsage counts quiz attempts started by a user on one UTC day.
// "Reset at midnight" is simply the absence of a row for the new day.
type DailyQuizUsage struct {
	gorm.Model
	UserID uint   `gorm:"not null;uniqueIndex:idx_daily_usage_user_day"`
	Day    string `gorm:"size:10;not null;uniqueIndex:idx_daily_usage_user_day"` // YYYY-MM-DD, UTC
	Count  int    `gorm:"default:0"`
}

// QuizAttempt records one scored submission, pass or fail.
type QuizAttempt struct {
	ID           string `gorm:"primaryKey;size:36"`
	UserID       uint   `gorm:"index;not null"`
	QuizID       uint   `gorm:"index;not null"`
	ScorePercent float64 `gorm:"not null"`
	Passed       bool    `gorm:"not null;default:false"`
	Details      datatypes.JSON `gorm:"type:jsonb"` // per-question outcomes
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
}
