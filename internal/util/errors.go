package util

import "errors"

// Error classes. Every domain error below unwraps to exactly one of them.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrAlreadyExists = errors.New("already exists")
)

var (
	ErrQuizNotFound            = classified("quiz not found", ErrNotFound)
	ErrQuestionNotFound        = classified("question not found", ErrNotFound)
	ErrAttemptNotFound         = classified("attempt not found", ErrNotFound)
	ErrNoQuestionsFound        = classified("no questions found for quiz", ErrNotFound)
	ErrNoQuestionsAvailable    = classified("quiz has no questions available", ErrInvalidState)
	ErrQuizInactive            = classified("quiz is not active", ErrInvalidState)
	ErrAttemptsExhausted       = classified("no attempts left for this quiz", ErrInvalidState)
	ErrInvalidStatusTransition = classified("invalid attempt status transition", ErrInvalidState)
	ErrResponseAlreadyExists   = classified("response already submitted for this question", ErrAlreadyExists)
	ErrPermissionDenied        = errors.New("permission denied")
)

type classError struct {
	msg   string
	class error
}

func classified(msg string, class error) error {
	return &classError{msg: msg, class: class}
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Unwrap() error { return e.class }
