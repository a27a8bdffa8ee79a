// Package grading decides whether a raw user answer matches a question's
// answer key. Malformed input never produces an error, it is graded wrong.
package grading

import (
	"course_quiz_backend/internal/model"

	"github.com/shopspring/decimal"
)

// Kind is the grading family of a question type.
type Kind int

const (
	FreeText Kind = iota
	SingleChoice
	MultipleChoice
)

func (k Kind) String() string {
	switch k {
	case SingleChoice:
		return "single_choice"
	case MultipleChoice:
		return "multiple_choice"
	}
	return "free_text"
}

// KindOf maps a stored question type to its grading family. Unknown types are
// graded as free text.
func KindOf(t model.QuestionType) Kind {
	switch t {
	case model.QuestionMCQSingle:
		return SingleChoice
	case model.QuestionMCQMultiple:
		return MultipleChoice
	}
	return FreeText
}

// Validator compares one raw user answer with one raw answer key.
type Validator interface {
	Validate(userAnswer, correctAnswer string) bool
}

var validators = map[Kind]Validator{
	SingleChoice:   singleChoice{},
	MultipleChoice: multipleChoice{},
	FreeText:       freeText{},
}

func ValidatorFor(k Kind) Validator {
	if v, ok := validators[k]; ok {
		return v
	}
	return validators[FreeText]
}

// IsCorrect grades userAnswer against q.
func IsCorrect(userAnswer string, q *model.Question) bool {
	if q == nil {
		return false
	}
	return ValidatorFor(KindOf(q.QuestionType)).Validate(userAnswer, q.CorrectAnswer)
}

// Score returns the correctness and the points awarded: the question's points
// when correct, zero otherwise.
func Score(userAnswer string, q *model.Question) (bool, decimal.Decimal) {
	if IsCorrect(userAnswer, q) {
		return true, q.Points
	}
	return false, decimal.Zero
}

type singleChoice struct{}

func (singleChoice) Validate(userAnswer, correctAnswer string) bool {
	got, err := ExtractScalar(userAnswer, scalarKeys...)
	if err != nil {
		return false
	}
	want, err := ExtractScalar(correctAnswer, scalarKeys...)
	if err != nil {
		return false
	}
	got, want = normalize(got), normalize(want)
	return want != "" && got == want
}

type multipleChoice struct{}

// Validate requires the selected set to equal the correct set exactly; order
// and case do not matter and there is no partial credit.
func (multipleChoice) Validate(userAnswer, correctAnswer string) bool {
	got, err := ExtractSet(userAnswer, selectedKeys...)
	if err != nil {
		return false
	}
	want, err := ExtractSet(correctAnswer, correctSetKey...)
	if err != nil || len(want) == 0 {
		return false
	}
	gotSet, wantSet := toSet(got), toSet(want)
	if len(gotSet) != len(wantSet) {
		return false
	}
	for v := range wantSet {
		if _, ok := gotSet[v]; !ok {
			return false
		}
	}
	return true
}

type freeText struct{}

func (freeText) Validate(userAnswer, correctAnswer string) bool {
	got, err := ExtractScalar(userAnswer, scalarKeys...)
	if err != nil {
		return false
	}
	want, err := ExtractScalar(correctAnswer, scalarKeys...)
	if err != nil {
		return false
	}
	got, want = normalize(stripQuotes(got)), normalize(stripQuotes(want))
	return want != "" && got == want
}
