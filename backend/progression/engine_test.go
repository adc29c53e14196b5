package progression

import (
	"fmt"
	"testing"
	"time"

	"skillpath/backend/models"
	"skillpath/backend/quota"
	"skillpath/backend/rewards"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore is an in-memory Store with the same optimistic-concurrency
// contract as the database-backed one.
type memStore struct {
	users       map[uint]*models.User
	enrollments map[string]*models.Enrollment
	totals      map[uint]*models.UserTotals
	daily       map[string]int
	attempts    []models.QuizAttempt

	// failCommits makes the next N CommitProgress calls report a conflict.
	failCommits int
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uint]*models.User),
		enrollments: make(map[string]*models.Enrollment),
		totals:      make(map[uint]*models.UserTotals),
		daily:       make(map[string]int),
	}
}

func enrollKey(userID, courseID uint) string {
	return fmt.Sprintf("%d/%d", userID, courseID)
}

func (m *memStore) GetUser(id uint) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *memStore) GetEnrollment(userID, courseID uint) (*models.Enrollment, error) {
	e, ok := m.enrollments[enrollKey(userID, courseID)]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

func (m *memStore) CreateEnrollment(e *models.Enrollment) error {
	key := enrollKey(e.UserID, e.CourseID)
	if _, exists := m.enrollments[key]; exists {
		return ErrAlreadyEnrolled
	}
	clone := *e
	m.enrollments[key] = &clone
	return nil
}

func (m *memStore) IncrementEnrolledCount(courseID uint) error { return nil }

func (m *memStore) CommitProgress(e *models.Enrollment, expectedVersion int, r rewards.Reward, levels rewards.LevelTable) (models.UserTotals, bool, error) {
	if m.failCommits > 0 {
		m.failCommits--
		return models.UserTotals{}, false, ErrVersionConflict
	}
	key := enrollKey(e.UserID, e.CourseID)
	stored, ok := m.enrollments[key]
	if !ok || stored.Version != expectedVersion {
		return models.UserTotals{}, false, ErrVersionConflict
	}
	clone := *e
	clone.Version = expectedVersion + 1
	m.enrollments[key] = &clone

	totals, ok := m.totals[e.UserID]
	if !ok {
		totals = &models.UserTotals{UserID: e.UserID, Level: 1}
		m.totals[e.UserID] = totals
	}
	leveledUp := false
	if !r.IsZero() {
		leveledUp = rewards.Apply(totals, r, levels)
	}
	return *totals, leveledUp, nil
}

func (m *memStore) RecordQuizAttempt(a *models.QuizAttempt) error {
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *memStore) GetTotals(userID uint) (models.UserTotals, error) {
	if t, ok := m.totals[userID]; ok {
		return *t, nil
	}
	return models.UserTotals{UserID: userID, Level: 1}, nil
}

func (m *memStore) GetDailyQuizCount(userID uint, day string) (int, error) {
	return m.daily[fmt.Sprintf("%d/%s", userID, day)], nil
}

func (m *memStore) IncrementDailyQuizCount(userID uint, day string) (int, error) {
	k := fmt.Sprintf("%d/%s", userID, day)
	m.daily[k]++
	return m.daily[k], nil
}

// memCatalog serves fixed courses and quizzes.
type memCatalog struct {
	courses []*models.Course
	quizzes []*models.Quiz
}

func (m *memCatalog) CourseBySlug(slug string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, fmt.Errorf("course %s: %w", slug, gorm.ErrRecordNotFound)
}

func (m *memCatalog) CourseByID(id uint) (*models.Course, error) {
	for _, c := range m.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCatalog) QuizBySlug(slug string) (*models.Quiz, error) {
	for _, q := range m.quizzes {
		if q.Slug == slug {
			return q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCatalog) QuizzesForCourse(courseID uint) ([]models.Quiz, error) {
	var out []models.Quiz
	for _, q := range m.quizzes {
		if q.CourseID == courseID {
			out = append(out, *q)
		}
	}
	return out, nil
}

// twoLessonCourse builds the scenario-A fixture: one chapter with two
// lessons and a final exam with passing score 80.
func twoLessonCourse() (*memCatalog, *models.Course) {
	course := &models.Course{
		Model: gorm.Model{ID: 1},
		Slug:  "go-basics",
		Chapters: []models.Chapter{
			{
				Model:    gorm.Model{ID: 10},
				CourseID: 1,
				Lessons: []models.Lesson{
					{Model: gorm.Model{ID: 100}, ChapterID: 10, Slug: "intro", SequenceOrder: 1},
					{Model: gorm.Model{ID: 101}, ChapterID: 10, Slug: "types", SequenceOrder: 2},
				},
			},
		},
	}
	exam := &models.Quiz{
		Model:        gorm.Model{ID: 50},
		Slug:         "go-basics-exam",
		Kind:         models.QuizKindFinal,
		CourseID:     1,
		PassingScore: 80,
		Questions: []models.Question{
			{Model: gorm.Model{ID: 500}, QuizID: 50, Type: models.QuestionShortAnswer, CorrectAnswer: "a", Points: 10},
			{Model: gorm.Model{ID: 501}, QuizID: 50, Type: models.QuestionShortAnswer, CorrectAnswer: "b", Points: 10},
			{Model: gorm.Model{ID: 502}, QuizID: 50, Type: models.QuestionShortAnswer, CorrectAnswer: "c", Points: 10},
			{Model: gorm.Model{ID: 503}, QuizID: 50, Type: models.QuestionShortAnswer, CorrectAnswer: "d", Points: 10},
			{Model: gorm.Model{ID: 504}, QuizID: 50, Type: models.QuestionShortAnswer, CorrectAnswer: "e", Points: 10},
		},
	}
	return &memCatalog{courses: []*models.Course{course}, quizzes: []*models.Quiz{exam}}, course
}

func newTestEngine(cat *memCatalog, store *memStore) *Engine {
	qm := quota.NewManagerAt(store, func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	})
	return NewEngine(cat, store, qm, rewards.DefaultLevels)
}

func addUser(store *memStore, id uint, tier string) {
	store.users[id] = &models.User{Model: gorm.Model{ID: id}, Tier: tier}
}

func TestEnroll(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	enrollment, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)
	assert.Equal(t, 0, enrollment.CurrentChapter)
	assert.Equal(t, 0, enrollment.CurrentLesson)
	assert.Equal(t, float64(0), enrollment.CompletionPercentage)
	assert.False(t, enrollment.Completed)

	t.Run("SecondEnrollRejected", func(t *testing.T) {
		_, err := engine.Enroll(1, "go-basics")
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	})

	t.Run("UnknownCourse", func(t *testing.T) {
		_, err := engine.Enroll(1, "no-such-course")
		assert.Error(t, err)
	})
}

// TestCourseJourney walks the two-lesson course end to end: lesson by
// lesson to 100%, then the final exam flips completed.
func TestCourseJourney(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	out, err := engine.CompleteLesson(1, "go-basics", 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, float64(50), out.Progress.CompletionPercentage)
	assert.Equal(t, 0, out.Progress.CurrentChapter)
	assert.Equal(t, 1, out.Progress.CurrentLesson)
	assert.Equal(t, rewards.XPPerLesson, out.Reward.XP)
	assert.False(t, out.Progress.Completed)

	out, err = engine.CompleteLesson(1, "go-basics", 0, 1, false)
	require.NoError(t, err)
	assert.Equal(t, float64(100), out.Progress.CompletionPercentage)
	assert.False(t, out.Progress.Completed, "exam not taken yet")

	// Passing the exam at 100% (5/5 correct, above the 80% bar) completes
	// the course.
	answers := []Answer{
		{QuestionID: 500, Value: "a"},
		{QuestionID: 501, Value: "b"},
		{QuestionID: 502, Value: "c"},
		{QuestionID: 503, Value: "d"},
		{QuestionID: 504, Value: "e"},
	}
	out, result, err := engine.SubmitQuiz(1, "go-basics-exam", answers)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, out.Progress.Completed)
	assert.Equal(t, float64(100), out.Progress.CompletionPercentage)
	assert.Equal(t, 50, out.Reward.XP)
	assert.Equal(t, rewards.GemsExamBonus, out.Reward.Gems)
}

func TestCompleteLessonValidation(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	t.Run("NotEnrolled", func(t *testing.T) {
		_, err := engine.CompleteLesson(1, "go-basics", 0, 0, false)
		assert.ErrorIs(t, err, ErrNotEnrolled)
	})

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	t.Run("SkippingAhead", func(t *testing.T) {
		_, err := engine.CompleteLesson(1, "go-basics", 0, 1, false)
		assert.ErrorIs(t, err, ErrInvalidPosition)
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		_, err := engine.CompleteLesson(1, "go-basics", 3, 0, false)
		assert.ErrorIs(t, err, ErrInvalidPosition)
		_, err = engine.CompleteLesson(1, "go-basics", 0, -1, false)
		assert.ErrorIs(t, err, ErrInvalidPosition)
	})

	t.Run("RevisitIsNoOp", func(t *testing.T) {
		out, err := engine.CompleteLesson(1, "go-basics", 0, 0, false)
		require.NoError(t, err)
		xpAfterFirst := out.Totals.XP

		out, err = engine.CompleteLesson(1, "go-basics", 0, 0, false)
		require.NoError(t, err)
		assert.True(t, out.Reward.IsZero(), "revisit must not re-credit")
		assert.Equal(t, xpAfterFirst, out.Totals.XP)
		assert.Equal(t, float64(50), out.Progress.CompletionPercentage)
	})
}

// TestMonotonicProgress checks that completionPercentage never decreases
// over a full run of valid completions.
func TestMonotonicProgress(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	prev := float64(0)
	for _, pos := range [][2]int{{0, 0}, {0, 0}, {0, 1}, {0, 1}} {
		out, err := engine.CompleteLesson(1, "go-basics", pos[0], pos[1], false)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.Progress.CompletionPercentage, prev)
		prev = out.Progress.CompletionPercentage
	}
}

// TestQuotaScenario is scenario B: a free-tier user fails a quiz (quota
// consumed, progress untouched) and the second attempt that day is
// rejected before scoring.
func TestQuotaScenario(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	// 3/5 correct = 60%, below the 80% bar.
	answers := []Answer{
		{QuestionID: 500, Value: "a"},
		{QuestionID: 501, Value: "b"},
		{QuestionID: 502, Value: "c"},
	}
	out, result, err := engine.SubmitQuiz(1, "go-basics-exam", answers)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, float64(60), result.ScorePercent)
	assert.True(t, out.Reward.IsZero())
	assert.False(t, out.Progress.Completed)
	assert.Equal(t, float64(0), out.Progress.CompletionPercentage)

	count, _ := store.GetDailyQuizCount(1, "2025-03-10")
	assert.Equal(t, 1, count, "failed attempt still consumes quota")

	_, _, err = engine.SubmitQuiz(1, "go-basics-exam", answers)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 1, quotaErr.MaxAllowed)

	count, _ = store.GetDailyQuizCount(1, "2025-03-10")
	assert.Equal(t, 1, count, "rejected attempt must not increment")
}

func TestQuizIdempotentPass(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierPro)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	answers := []Answer{
		{QuestionID: 500, Value: "a"},
		{QuestionID: 501, Value: "b"},
		{QuestionID: 502, Value: "c"},
		{QuestionID: 503, Value: "d"},
		{QuestionID: 504, Value: "e"},
	}
	out, result, err := engine.SubmitQuiz(1, "go-basics-exam", answers)
	require.NoError(t, err)
	require.True(t, result.Passed)
	xpAfterPass := out.Totals.XP

	// A second pass of the same quiz scores but never re-credits.
	out, result, err = engine.SubmitQuiz(1, "go-basics-exam", answers)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, out.Reward.IsZero())
	assert.Equal(t, xpAfterPass, out.Totals.XP)
}

// TestPracticeRetakeBypassesQuota: once the course is completed and the
// quiz already passed, re-takes are practice and free.
func TestPracticeRetakeBypassesQuota(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)
	_, err = engine.CompleteLesson(1, "go-basics", 0, 0, false)
	require.NoError(t, err)
	_, err = engine.CompleteLesson(1, "go-basics", 0, 1, false)
	require.NoError(t, err)

	answers := []Answer{
		{QuestionID: 500, Value: "a"},
		{QuestionID: 501, Value: "b"},
		{QuestionID: 502, Value: "c"},
		{QuestionID: 503, Value: "d"},
		{QuestionID: 504, Value: "e"},
	}
	out, _, err := engine.SubmitQuiz(1, "go-basics-exam", answers)
	require.NoError(t, err)
	require.True(t, out.Progress.Completed)

	// Free tier has one attempt per day and it is used up, yet practice
	// re-takes keep working.
	for i := 0; i < 3; i++ {
		_, result, err := engine.SubmitQuiz(1, "go-basics-exam", answers)
		require.NoError(t, err)
		assert.True(t, result.Passed)
	}
	count, _ := store.GetDailyQuizCount(1, "2025-03-10")
	assert.Equal(t, 1, count)
}

// TestCompletionInvariant: completed == true implies every lesson done
// and every quiz passed.
func TestCompletionInvariant(t *testing.T) {
	cat, course := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierPro)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	// Early exam pass: allowed, but completed stays false until the
	// lessons are done too.
	answers := []Answer{
		{QuestionID: 500, Value: "a"},
		{QuestionID: 501, Value: "b"},
		{QuestionID: 502, Value: "c"},
		{QuestionID: 503, Value: "d"},
		{QuestionID: 504, Value: "e"},
	}
	out, result, err := engine.SubmitQuiz(1, "go-basics-exam", answers)
	require.NoError(t, err)
	require.True(t, result.Passed)
	assert.False(t, out.Progress.Completed, "early exam pass must not complete the course")

	_, err = engine.CompleteLesson(1, "go-basics", 0, 0, false)
	require.NoError(t, err)
	out2, err := engine.CompleteLesson(1, "go-basics", 0, 1, false)
	require.NoError(t, err)

	assert.True(t, out2.Progress.Completed)
	ps, err := out2.Progress.ProgressState()
	require.NoError(t, err)
	for ci, ch := range course.Chapters {
		for li := range ch.Lessons {
			assert.True(t, ps.LessonCompleted(ci, li))
		}
	}
	assert.True(t, ps.ExamPassed)
	assert.GreaterOrEqual(t, out2.Progress.CompletionPercentage, float64(100))
}

// TestConflictRetry: transient version conflicts are retried and succeed;
// persistent conflicts surface ErrVersionConflict.
func TestConflictRetry(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	t.Run("TransientConflict", func(t *testing.T) {
		store.failCommits = 2
		out, err := engine.CompleteLesson(1, "go-basics", 0, 0, false)
		require.NoError(t, err)
		assert.Equal(t, rewards.XPPerLesson, out.Reward.XP)
	})

	t.Run("PersistentConflict", func(t *testing.T) {
		store.failCommits = 10
		_, err := engine.CompleteLesson(1, "go-basics", 0, 1, false)
		assert.ErrorIs(t, err, ErrVersionConflict)
		store.failCommits = 0
	})
}

func TestLessonRewardWithExercise(t *testing.T) {
	cat, course := twoLessonCourse()
	course.Chapters[0].Lessons[0].Parts = []models.Part{
		{Model: gorm.Model{ID: 1000}, LessonID: 100, Exercise: &models.Exercise{Model: gorm.Model{ID: 2000}, PartID: 1000, Points: 12}},
	}
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	_, err := engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	out, err := engine.CompleteLesson(1, "go-basics", 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, rewards.XPPerLesson+12, out.Reward.XP)
	assert.Equal(t, rewards.GemsPerExercise, out.Reward.Gems)
}

func TestSummary(t *testing.T) {
	cat, _ := twoLessonCourse()
	store := newMemStore()
	addUser(store, 1, models.TierFree)
	engine := newTestEngine(cat, store)

	_, err := engine.Summary(1, "go-basics")
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = engine.Enroll(1, "go-basics")
	require.NoError(t, err)

	enrollment, err := engine.Summary(1, "go-basics")
	require.NoError(t, err)
	assert.Equal(t, float64(0), enrollment.CompletionPercentage)
}
