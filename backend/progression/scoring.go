package progression

import (
	"encoding/json"
	"strings"

	"skillpath/backend/models"

	"gorm.io/datatypes"
)

// Answer is one submitted answer. Value carries single-value answers;
// Values carries one string per blank for fill-in-blanks questions.
type Answer struct {
	QuestionID uint     `json:"question_id"`
	Value      string   `json:"value"`
	Values     []string `json:"values"`
}

type QuestionResult struct {
	QuestionID uint `json:"question_id"`
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
}

type QuizResult struct {
	PointsEarned   int              `json:"points_earned"`
	PointsPossible int              `json:"points_possible"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	ScorePercent   float64          `json:"score_percent"`
	Passed         bool             `json:"passed"`
	Questions      []QuestionResult `json:"questions"`
}

// Score grades a submission against the quiz's stored answers. Unanswered
// questions count as wrong; the score is points-weighted.
func Score(quiz *models.Quiz, answers []Answer) QuizResult {
	byQuestion := make(map[uint]Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	result := QuizResult{TotalQuestions: len(quiz.Questions)}
	for _, q := range quiz.Questions {
		result.PointsPossible += q.Points

		qr := QuestionResult{QuestionID: q.ID}
		if a, ok := byQuestion[q.ID]; ok && scoreQuestion(&q, a) {
			qr.Correct = true
			qr.Points = q.Points
			result.PointsEarned += q.Points
			result.CorrectCount++
		}
		result.Questions = append(result.Questions, qr)
	}

	if result.PointsPossible > 0 {
		result.ScorePercent = float64(result.PointsEarned) / float64(result.PointsPossible) * 100
	}
	result.Passed = result.ScorePercent >= quiz.PassingScore
	return result
}

func scoreQuestion(q *models.Question, a Answer) bool {
	switch q.Type {
	case models.QuestionMultipleChoice, models.QuestionTrueFalse:
		return strings.TrimSpace(a.Value) == strings.TrimSpace(q.CorrectAnswer)
	case models.QuestionFillInBlanks:
		return scoreBlanks(q, a.Values)
	default:
		// Short-answer, including content authored as drag-and-drop.
		return normalize(a.Value) == normalize(q.CorrectAnswer)
	}
}

func scoreBlanks(q *models.Question, values []string) bool {
	var expected []string
	if err := json.Unmarshal(q.CorrectAnswers, &expected); err != nil {
		return false
	}
	if len(values) != len(expected) {
		return false
	}
	for i := range expected {
		if normalize(values[i]) != normalize(expected[i]) {
			return false
		}
	}
	return len(expected) > 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func marshalDetails(result *QuizResult) (datatypes.JSON, error) {
	raw, err := json.Marshal(result.Questions)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
