// Package rewards maps completion events to XP/gem deltas and derives
// levels from cumulative XP. Everything here is pure; persistence of the
// resulting totals belongs to the store.
package rewards

import (
	"sort"
	"strconv"
	"strings"

	"skillpath/backend/models"
)

// XP and gem amounts for the fixed parts of the schedule. Quiz XP is not
// fixed: it is the sum of points on correctly answered questions.
const (
	XPPerLesson      = 20
	GemsPerExercise  = 5
	GemsQuizBonus    = 10
	GemsExamBonus    = 25
)

type Reward struct {
	XP   int `json:"xp"`
	Gems int `json:"gems"`
}

func (r Reward) IsZero() bool {
	return r.XP == 0 && r.Gems == 0
}

// ForLesson computes the reward for completing a lesson. The base XP is a
// flat per-lesson amount; exercise points add XP, and gems are granted
// only when the lesson had an exercise and the user solved it.
func ForLesson(hasExercise, exercisePassed bool, exercisePoints int) Reward {
	r := Reward{XP: XPPerLesson}
	if hasExercise && exercisePassed {
		r.XP += exercisePoints
		r.Gems = GemsPerExercise
	}
	return r
}

// ForQuiz computes the reward for a scored quiz submission. XP equals the
// points earned on correct answers; the gem bonus lands only on a pass.
// The final exam pays a larger bonus than chapter/lesson quizzes.
func ForQuiz(kind string, pointsEarned int, passed bool) Reward {
	r := Reward{XP: pointsEarned}
	if passed {
		if kind == models.QuizKindFinal {
			r.Gems = GemsExamBonus
		} else {
			r.Gems = GemsQuizBonus
		}
	}
	return r
}

// LevelTable holds the cumulative XP required to reach each level.
// table[i] is the XP floor of level i+1, so a valid table starts at 0 and
// is strictly increasing.
type LevelTable []int

// DefaultLevels is used when no LEVEL_THRESHOLDS configuration is given.
var DefaultLevels = LevelTable{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 12000}

// ParseLevels reads a comma-separated threshold list from configuration.
// The parsed table is normalized: sorted ascending and forced to start at 0.
func ParseLevels(s string) (LevelTable, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultLevels, nil
	}
	parts := strings.Split(s, ",")
	table := make(LevelTable, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		table = append(table, n)
	}
	sort.Ints(table)
	if table[0] != 0 {
		table = append(LevelTable{0}, table...)
	}
	return table, nil
}

// LevelFor returns the level reached at the given cumulative XP: the
// 1-based index of the highest threshold not exceeding xp.
func (t LevelTable) LevelFor(xp int) int {
	if len(t) == 0 {
		return 1
	}
	level := 1
	for i, threshold := range t {
		if xp >= threshold {
			level = i + 1
		} else {
			break
		}
	}
	return level
}

// Apply credits a reward to the running totals and recomputes the level.
// It reports whether the credit crossed a level threshold.
func Apply(totals *models.UserTotals, r Reward, table LevelTable) (leveledUp bool) {
	before := table.LevelFor(totals.XP)
	totals.XP += r.XP
	totals.Gems += r.Gems
	totals.Level = table.LevelFor(totals.XP)
	return totals.Level != before
}
