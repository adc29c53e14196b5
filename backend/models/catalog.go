package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quiz kinds. A course has at most one final exam; chapters and lessons
// may each carry one quiz.
const (
	QuizKindLesson  = "lesson"
	QuizKindChapter = "chapter"
	QuizKindFinal   = "final"
)

// Question types supported by the scoring engine. Content authored as
// drag-and-drop is stored (and scored) as short-answer.
const (
	QuestionMultipleChoice = "multiple-choice"
	QuestionTrueFalse      = "true-false"
	QuestionShortAnswer    = "short-answer"
	QuestionFillInBlanks   = "fill-in-blanks"
)

type Course struct {
	gorm.Model
	Slug          string `gorm:"uniqueIndex;not null"`
	Title         string `gorm:"size:255;not null"`
	ShortDesc     string `gorm:"type:text"`
	Description   string `gorm:"type:text"`
	BadgeName     string
	BadgeIconURL  string
	EnrolledCount int64     `gorm:"default:0"`
	Chapters      []Chapter `gorm:"foreignKey:CourseID"`
}

type Chapter struct {
	gorm.Model
	CourseID      uint   `gorm:"index;not null"`
	Title         string `gorm:"size:255;not null"`
	SequenceOrder int    `gorm:"not null;default:1"`
	Lessons       []Lesson `gorm:"foreignKey:ChapterID"`
}

type Lesson struct {
	gorm.Model
	ChapterID       uint   `gorm:"index;not null"`
	Slug            string `gorm:"index;not null"`
	Title           string `gorm:"size:255;not null"`
	DurationMinutes int    `gorm:"default:0"`
	SequenceOrder   int    `gorm:"not null;default:1"`
	Parts           []Part `gorm:"foreignKey:LessonID"`
}

type Part struct {
	gorm.Model
	LessonID      uint   `gorm:"index;not null"`
	SequenceOrder int    `gorm:"not null;default:1"`
	Body          string `gorm:"type:text"`
	Exercise      *Exercise `gorm:"foreignKey:PartID"`
}

type Exercise struct {
	gorm.Model
	PartID uint   `gorm:"index;not null"`
	Prompt string `gorm:"type:text"`
	Points int    `gorm:"default:0"`
}

// Quiz attaches to a lesson, a chapter, or the course itself (final exam)
// depending on Kind. ChapterID/LessonID are set only for the matching kind.
type Quiz struct {
	gorm.Model
	Slug         string  `gorm:"uniqueIndex;not null"`
	Kind         string  `gorm:"size:16;not null"`
	CourseID     uint    `gorm:"index;not null"`
	ChapterID    *uint   `gorm:"index"`
	LessonID     *uint   `gorm:"index"`
	PassingScore float64 `gorm:"not null;default:70"` // percent, 0-100
	Questions    []Question `gorm:"foreignKey:QuizID"`
}

type Question struct {
	gorm.Model
	QuizID        uint   `gorm:"index;not null"`
	SequenceOrder int    `gorm:"not null;default:1"`
	Type          string `gorm:"size:32;not null"`
	Prompt        string `gorm:"type:text;not null"`
	Options       datatypes.JSON `gorm:"type:jsonb"` // array of option strings, multiple-choice only
	CorrectAnswer string `gorm:"type:text"`
	// CorrectAnswers holds the per-blank expected strings for fill-in-blanks.
	CorrectAnswers datatypes.JSON `gorm:"type:jsonb"`
	Points         int            `gorm:"default:1"`
}
