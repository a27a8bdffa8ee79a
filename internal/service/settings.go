package service

import (
	"sync/atomic"

	"course_quiz_backend/internal/config"
)

// QuizSettings holds the hot-reloadable quiz section of the configuration.
type QuizSettings struct {
	v atomic.Pointer[config.QuizConfig]
}

func NewQuizSettings(cfg config.QuizConfig) *QuizSettings {
	s := &QuizSettings{}
	s.Store(cfg)
	return s
}

func (s *QuizSettings) Load() config.QuizConfig {
	if p := s.v.Load(); p != nil {
		return *p
	}
	return config.QuizConfig{DefaultQuestionsToShow: DefaultQuestionsToShow}
}

func (s *QuizSettings) Store(cfg config.QuizConfig) {
	if cfg.DefaultQuestionsToShow <= 0 {
		cfg.DefaultQuestionsToShow = DefaultQuestionsToShow
	}
	s.v.Store(&cfg)
}
