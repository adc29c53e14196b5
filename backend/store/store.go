// Package store is the persistence layer for progress, quota counters and
// the reward ledger. Progress writes go through optimistic concurrency on
// the enrollment's version column so that concurrent submissions from the
// same user never both credit.
package store

import (
	"errors"
	"strings"

	"skillpath/backend/models"
	"skillpath/backend/progression"
	"skillpath/backend/rewards"

	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetEnrollment returns nil without error when the user is not enrolled.
func (s *Store) GetEnrollment(userID, courseID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := s.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateEnrollment(e *models.Enrollment) error {
	if err := s.DB.Create(e).Error; err != nil {
		if isDuplicate(err) {
			return progression.ErrAlreadyEnrolled
		}
		return err
	}
	return nil
}

// IncrementEnrolledCount bumps the course counter in the database rather
// than read-modify-write, so concurrent enrolls never lose updates.
func (s *Store) IncrementEnrolledCount(courseID uint) error {
	return s.DB.Model(&models.Course{}).
		Where("id = ?", courseID).
		UpdateColumn("enrolled_count", gorm.Expr("enrolled_count + ?", 1)).Error
}

// CommitProgress applies the enrollment update and the reward credit in a
// single transaction. The enrollment row is only touched when its version
// still matches expectedVersion; anything else is a conflict and nothing
// is written.
func (s *Store) CommitProgress(e *models.Enrollment, expectedVersion int, r rewards.Reward, levels rewards.LevelTable) (models.UserTotals, bool, error) {
	var totals models.UserTotals
	var leveledUp bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Enrollment{}).
			Where("id = ? AND version = ?", e.ID, expectedVersion).
			Updates(map[string]interface{}{
				"current_chapter":       e.CurrentChapter,
				"current_lesson":        e.CurrentLesson,
				"completed":             e.Completed,
				"completion_percentage": e.CompletionPercentage,
				"state":                 e.State,
				"version":               expectedVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return progression.ErrVersionConflict
		}

		if err := tx.Where("user_id = ?", e.UserID).First(&totals).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			totals = models.UserTotals{UserID: e.UserID, Level: 1}
			if err := tx.Create(&totals).Error; err != nil {
				return err
			}
		}

		if r.IsZero() {
			return nil
		}
		leveledUp = rewards.Apply(&totals, r, levels)
		return tx.Model(&models.UserTotals{}).Where("id = ?", totals.ID).
			Updates(map[string]interface{}{
				"xp":    totals.XP,
				"gems":  totals.Gems,
				"level": totals.Level,
			}).Error
	})
	if err != nil {
		return models.UserTotals{}, false, err
	}
	return totals, leveledUp, nil
}

func (s *Store) GetTotals(userID uint) (models.UserTotals, error) {
	var totals models.UserTotals
	err := s.DB.Where("user_id = ?", userID).First(&totals).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserTotals{UserID: userID, Level: 1}, nil
	}
	if err != nil {
		return models.UserTotals{}, err
	}
	return totals, nil
}

func (s *Store) RecordQuizAttempt(a *models.QuizAttempt) error {
	return s.DB.Create(a).Error
}

// GetDailyQuizCount reads today's counter; a missing row is zero.
func (s *Store) GetDailyQuizCount(userID uint, day string) (int, error) {
	var usage models.DailyQuizUsage
	err := s.DB.Where("user_id = ? AND day = ?", userID, day).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.Count, nil
}

// IncrementDailyQuizCount bumps today's counter, creating the day row on
// first use. This write stands even when the surrounding submission later
// fails: attempts are consumed, not refunded.
func (s *Store) IncrementDailyQuizCount(userID uint, day string) (int, error) {
	var count int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var usage models.DailyQuizUsage
		err := tx.Where("user_id = ? AND day = ?", userID, day).First(&usage).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			usage = models.DailyQuizUsage{UserID: userID, Day: day, Count: 1}
			if err := tx.Create(&usage).Error; err != nil {
				return err
			}
			count = 1
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&usage).UpdateColumn("count", gorm.Expr("count + ?", 1)).Error; err != nil {
			return err
		}
		count = usage.Count + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
