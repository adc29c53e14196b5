package progression

import (
	"math"

	"skillpath/backend/models"
)

// completionPercentage is lesson-based: completed lessons over total
// lessons. Quizzes gate the completed flag but do not move the
// percentage.
func completionPercentage(course *models.Course, ps *models.ProgressState) float64 {
	total := 0
	done := 0
	for ci, ch := range course.Chapters {
		total += len(ch.Lessons)
		for li := range ch.Lessons {
			if ps.LessonCompleted(ci, li) {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	pct := float64(done) / float64(total) * 100
	return math.Round(pct*100) / 100
}

// isCompleted is the single source of truth for course completion:
// every lesson done, every lesson and chapter quiz passed, and the
// final exam passed. The stored Completed flag is only ever a cache of
// this function's result.
func isCompleted(course *models.Course, quizzes []models.Quiz, ps *models.ProgressState) bool {
	for ci, ch := range course.Chapters {
		for li := range ch.Lessons {
			if !ps.LessonCompleted(ci, li) {
				return false
			}
		}
	}

	chapterIndex := make(map[uint]int, len(course.Chapters))
	lessonIndex := make(map[uint]int)
	for ci, ch := range course.Chapters {
		chapterIndex[ch.ID] = ci
		for li, l := range ch.Lessons {
			lessonIndex[l.ID] = li
		}
	}

	examSeen := false
	for _, quiz := range quizzes {
		switch quiz.Kind {
		case models.QuizKindFinal:
			examSeen = true
			if !ps.ExamPassed {
				return false
			}
		case models.QuizKindChapter:
			ci, ok := chapterIndex[derefUint(quiz.ChapterID)]
			if !ok {
				continue
			}
			if !ps.Chapter(ci).QuizPassed {
				return false
			}
		case models.QuizKindLesson:
			ci, ok := chapterIndex[derefUint(quiz.ChapterID)]
			if !ok {
				continue
			}
			li, ok := lessonIndex[derefUint(quiz.LessonID)]
			if !ok {
				continue
			}
			if !ps.Chapter(ci).LessonQuizzes[li] {
				return false
			}
		}
	}

	// A course without a final exam in the catalog cannot complete until
	// one is published; the badge is tied to passing it.
	return examSeen
}

// refreshDerived recomputes the cached fields on the enrollment from the
// fact base.
func refreshDerived(course *models.Course, quizzes []models.Quiz, e *models.Enrollment, ps *models.ProgressState) {
	e.CompletionPercentage = completionPercentage(course, ps)
	e.Completed = isCompleted(course, quizzes, ps)
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}
