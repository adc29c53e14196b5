// Package progression is the state machine for a user's journey through
// a course: enrollment, lesson completion, quiz submission and the
// derived completion facts. It validates every event against the catalog
// structure and current progress before anything is written.
package progression

import (
	"github.com/google/uuid"

	"skillpath/backend/models"
	"skillpath/backend/quota"
	"skillpath/backend/rewards"
)

// conflictRetries bounds the optimistic-concurrency retry loop before the
// caller sees ErrVersionConflict.
const conflictRetries = 3

// Catalog is the read-only content lookup the engine depends on.
type Catalog interface {
	CourseBySlug(slug string) (*models.Course, error)
	CourseByID(id uint) (*models.Course, error)
	QuizBySlug(slug string) (*models.Quiz, error)
	QuizzesForCourse(courseID uint) ([]models.Quiz, error)
}

// Store is the persistence the engine writes through. CommitProgress must
// apply the enrollment update and the reward credit in one transaction,
// and must fail with ErrVersionConflict when expectedVersion is stale.
type Store interface {
	GetUser(id uint) (*models.User, error)
	GetEnrollment(userID, courseID uint) (*models.Enrollment, error)
	CreateEnrollment(e *models.Enrollment) error
	IncrementEnrolledCount(courseID uint) error
	CommitProgress(e *models.Enrollment, expectedVersion int, r rewards.Reward, levels rewards.LevelTable) (models.UserTotals, bool, error)
	RecordQuizAttempt(a *models.QuizAttempt) error
	GetTotals(userID uint) (models.UserTotals, error)
}

type Engine struct {
	catalog Catalog
	store   Store
	quota   *quota.Manager
	levels  rewards.LevelTable
}

func NewEngine(cat Catalog, store Store, qm *quota.Manager, levels rewards.LevelTable) *Engine {
	if len(levels) == 0 {
		levels = rewards.DefaultLevels
	}
	return &Engine{catalog: cat, store: store, quota: qm, levels: levels}
}

// Outcome is what a mutating operation hands back to the presentation
// layer: the new progress plus the notification payload inputs.
type Outcome struct {
	Progress  *models.Enrollment
	Reward    rewards.Reward
	Totals    models.UserTotals
	LeveledUp bool
}

// Enroll creates a zeroed enrollment at chapter 0, lesson 0. Re-enrolling
// is rejected, and the course's enrolled counter grows by exactly one per
// distinct user.
func (en *Engine) Enroll(userID uint, courseSlug string) (*models.Enrollment, error) {
	course, err := en.catalog.CourseBySlug(courseSlug)
	if err != nil {
		return nil, err
	}

	existing, err := en.store.GetEnrollment(userID, course.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyEnrolled
	}

	enrollment := &models.Enrollment{
		UserID:   userID,
		CourseID: course.ID,
	}
	if err := enrollment.SetProgressState(models.NewProgressState()); err != nil {
		return nil, err
	}
	// The unique (user, course) index backstops the existence check under
	// concurrent enrolls; the store maps the duplicate to ErrAlreadyEnrolled.
	if err := en.store.CreateEnrollment(enrollment); err != nil {
		return nil, err
	}
	if err := en.store.IncrementEnrolledCount(course.ID); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// CompleteLesson marks the lesson at (chapterIdx, lessonIdx) done and
// advances the position pointer. Only the current lesson can be
// completed; revisiting an already-completed lesson is a no-op with zero
// reward, and skipping ahead is rejected.
func (en *Engine) CompleteLesson(userID uint, courseSlug string, chapterIdx, lessonIdx int, exercisePassed bool) (*Outcome, error) {
	course, err := en.catalog.CourseBySlug(courseSlug)
	if err != nil {
		return nil, err
	}
	quizzes, err := en.catalog.QuizzesForCourse(course.ID)
	if err != nil {
		return nil, err
	}

	if chapterIdx < 0 || chapterIdx >= len(course.Chapters) {
		return nil, ErrInvalidPosition
	}
	chapter := course.Chapters[chapterIdx]
	if lessonIdx < 0 || lessonIdx >= len(chapter.Lessons) {
		return nil, ErrInvalidPosition
	}
	lesson := chapter.Lessons[lessonIdx]

	for attempt := 0; attempt < conflictRetries; attempt++ {
		enrollment, err := en.store.GetEnrollment(userID, course.ID)
		if err != nil {
			return nil, err
		}
		if enrollment == nil {
			return nil, ErrNotEnrolled
		}

		ps, err := enrollment.ProgressState()
		if err != nil {
			return nil, err
		}

		if ps.LessonCompleted(chapterIdx, lessonIdx) {
			// Revisit: progress stays, nothing is re-credited.
			totals, err := en.store.GetTotals(userID)
			if err != nil {
				return nil, err
			}
			return &Outcome{Progress: enrollment, Totals: totals}, nil
		}
		if chapterIdx != enrollment.CurrentChapter || lessonIdx != enrollment.CurrentLesson {
			return nil, ErrInvalidPosition
		}

		ps.Chapter(chapterIdx).Lessons[lessonIdx] = true
		advancePointer(course, enrollment, chapterIdx, lessonIdx)
		refreshDerived(course, quizzes, enrollment, ps)
		if err := enrollment.SetProgressState(ps); err != nil {
			return nil, err
		}

		hasExercise, exercisePoints := lessonExercise(&lesson)
		reward := rewards.ForLesson(hasExercise, exercisePassed, exercisePoints)

		totals, leveledUp, err := en.store.CommitProgress(enrollment, enrollment.Version, reward, en.levels)
		if err == ErrVersionConflict {
			continue
		}
		if err != nil {
			return nil, err
		}
		enrollment.Version++
		return &Outcome{Progress: enrollment, Reward: reward, Totals: totals, LeveledUp: leveledUp}, nil
	}
	return nil, ErrVersionConflict
}

// SubmitQuiz scores a submission against the catalog and, on a first
// pass, records it in the progress and credits the reward. The attempt
// consumes daily quota before scoring and the quota is never refunded; a
// re-take of an already-passed quiz on a completed course is practice and
// bypasses the quota.
func (en *Engine) SubmitQuiz(userID uint, quizSlug string, answers []Answer) (*Outcome, *QuizResult, error) {
	quiz, err := en.catalog.QuizBySlug(quizSlug)
	if err != nil {
		return nil, nil, err
	}
	course, err := en.catalog.CourseByID(quiz.CourseID)
	if err != nil {
		return nil, nil, err
	}
	quizzes, err := en.catalog.QuizzesForCourse(course.ID)
	if err != nil {
		return nil, nil, err
	}

	enrollment, err := en.store.GetEnrollment(userID, course.ID)
	if err != nil {
		return nil, nil, err
	}
	if enrollment == nil {
		return nil, nil, ErrNotEnrolled
	}

	ps, err := enrollment.ProgressState()
	if err != nil {
		return nil, nil, err
	}
	alreadyPassed := quizPassed(course, quiz, ps)

	// Practice mode: the quiz is already passed and the course is done, so
	// the attempt is free. Everything else goes through the quota.
	practice := alreadyPassed && enrollment.Completed
	if !practice {
		user, err := en.store.GetUser(userID)
		if err != nil {
			return nil, nil, err
		}
		ok, err := en.quota.CanAttempt(userID, user.Tier)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, &QuotaExceededError{
				MaxAllowed: quota.MaxAttemptsFor(user.Tier),
				ResetsAt:   en.quota.ResetsAt(),
			}
		}
		// Consumed here, before scoring, and never rolled back.
		if _, err := en.quota.RecordAttempt(userID); err != nil {
			return nil, nil, err
		}
	}

	result := Score(quiz, answers)
	en.recordAttempt(userID, quiz.ID, &result)

	if !result.Passed || alreadyPassed {
		// Failed attempts leave progress untouched; repeated passes are
		// never re-credited.
		totals, err := en.store.GetTotals(userID)
		if err != nil {
			return nil, nil, err
		}
		return &Outcome{Progress: enrollment, Totals: totals}, &result, nil
	}

	reward := rewards.ForQuiz(quiz.Kind, result.PointsEarned, true)

	for attempt := 0; attempt < conflictRetries; attempt++ {
		markQuizPassed(course, quiz, ps)
		refreshDerived(course, quizzes, enrollment, ps)
		if err := enrollment.SetProgressState(ps); err != nil {
			return nil, nil, err
		}

		totals, leveledUp, err := en.store.CommitProgress(enrollment, enrollment.Version, reward, en.levels)
		if err == ErrVersionConflict {
			enrollment, err = en.store.GetEnrollment(userID, course.ID)
			if err != nil {
				return nil, nil, err
			}
			if enrollment == nil {
				return nil, nil, ErrNotEnrolled
			}
			ps, err = enrollment.ProgressState()
			if err != nil {
				return nil, nil, err
			}
			if quizPassed(course, quiz, ps) {
				// Lost the race to a duplicate submission; that writer
				// already credited the pass.
				totals, terr := en.store.GetTotals(userID)
				if terr != nil {
					return nil, nil, terr
				}
				return &Outcome{Progress: enrollment, Totals: totals}, &result, nil
			}
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		enrollment.Version++
		return &Outcome{Progress: enrollment, Reward: reward, Totals: totals, LeveledUp: leveledUp}, &result, nil
	}
	return nil, nil, ErrVersionConflict
}

// Summary returns the current progress for display. Read-only.
func (en *Engine) Summary(userID uint, courseSlug string) (*models.Enrollment, error) {
	course, err := en.catalog.CourseBySlug(courseSlug)
	if err != nil {
		return nil, err
	}
	enrollment, err := en.store.GetEnrollment(userID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, ErrNotEnrolled
	}
	return enrollment, nil
}

// advancePointer moves the current position forward after completing the
// lesson at (chapterIdx, lessonIdx). It never moves backward, and at the
// last lesson of the last chapter it stays put.
func advancePointer(course *models.Course, e *models.Enrollment, chapterIdx, lessonIdx int) {
	chapter := course.Chapters[chapterIdx]
	if lessonIdx+1 < len(chapter.Lessons) {
		e.CurrentLesson = lessonIdx + 1
		return
	}
	if chapterIdx+1 < len(course.Chapters) {
		e.CurrentChapter = chapterIdx + 1
		e.CurrentLesson = 0
		return
	}
	// End of the course: the chapter is ready for its quiz and the exam.
}

// quizPassed reads the stored fact for the given quiz out of the state.
func quizPassed(course *models.Course, quiz *models.Quiz, ps *models.ProgressState) bool {
	switch quiz.Kind {
	case models.QuizKindFinal:
		return ps.ExamPassed
	case models.QuizKindChapter:
		ci, ok := findChapter(course, derefUint(quiz.ChapterID))
		if !ok {
			return false
		}
		return ps.Chapter(ci).QuizPassed
	default:
		ci, ok := findChapter(course, derefUint(quiz.ChapterID))
		if !ok {
			return false
		}
		li, ok := findLesson(&course.Chapters[ci], derefUint(quiz.LessonID))
		if !ok {
			return false
		}
		return ps.Chapter(ci).LessonQuizzes[li]
	}
}

func markQuizPassed(course *models.Course, quiz *models.Quiz, ps *models.ProgressState) {
	switch quiz.Kind {
	case models.QuizKindFinal:
		ps.ExamPassed = true
	case models.QuizKindChapter:
		if ci, ok := findChapter(course, derefUint(quiz.ChapterID)); ok {
			ps.Chapter(ci).QuizPassed = true
		}
	default:
		ci, ok := findChapter(course, derefUint(quiz.ChapterID))
		if !ok {
			return
		}
		if li, ok := findLesson(&course.Chapters[ci], derefUint(quiz.LessonID)); ok {
			ps.Chapter(ci).LessonQuizzes[li] = true
		}
	}
}

func findChapter(course *models.Course, chapterID uint) (int, bool) {
	for i, ch := range course.Chapters {
		if ch.ID == chapterID {
			return i, true
		}
	}
	return 0, false
}

func findLesson(chapter *models.Chapter, lessonID uint) (int, bool) {
	for i, l := range chapter.Lessons {
		if l.ID == lessonID {
			return i, true
		}
	}
	return 0, false
}

func lessonExercise(lesson *models.Lesson) (bool, int) {
	has := false
	points := 0
	for _, p := range lesson.Parts {
		if p.Exercise != nil {
			has = true
			points += p.Exercise.Points
		}
	}
	return has, points
}

// recordAttempt persists the attempt history row. Failures here are not
// fatal to the submission; the attempt record is advisory.
func (en *Engine) recordAttempt(userID, quizID uint, result *QuizResult) {
	details, err := marshalDetails(result)
	if err != nil {
		return
	}
	_ = en.store.RecordQuizAttempt(&models.QuizAttempt{
		ID:           uuid.NewString(),
		UserID:       userID,
		QuizID:       quizID,
		ScorePercent: result.ScorePercent,
		Passed:       result.Passed,
		Details:      details,
	})
}
