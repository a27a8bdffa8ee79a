package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SubmissionManual      = "MANUAL"
	SubmissionAutoTimeout = "AUTO_TIMEOUT"
)

// ScoreSnapshot 提交时计算的成绩汇总
type ScoreSnapshot struct {
	TotalScore       decimal.Decimal `json:"totalScore"`
	MaxPossibleScore decimal.Decimal `json:"maxPossibleScore"`
	CorrectAnswers   int             `json:"correctAnswers"`
	TotalQuestions   int             `json:"totalQuestions"`
	PercentageScore  decimal.Decimal `json:"percentageScore"`
	SubmissionType   string          `json:"submissionType"`
	SubmittedAt      time.Time       `json:"submittedAt"`
}

// ScoreDetails is the nullable column form of a ScoreSnapshot. It is the only
// place the snapshot is encoded or decoded.
type ScoreDetails struct {
	Snapshot ScoreSnapshot
	Valid    bool
}

func NewScoreDetails(s ScoreSnapshot) ScoreDetails {
	return ScoreDetails{Snapshot: s, Valid: true}
}

func (ScoreDetails) GormDataType() string {
	return "json"
}

func (d *ScoreDetails) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*d = ScoreDetails{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported score details value %T", value)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*d = ScoreDetails{}
		return nil
	}
	var s ScoreSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("decode score details: %w", err)
	}
	*d = NewScoreDetails(s)
	return nil
}

func (d ScoreDetails) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	b, err := json.Marshal(d.Snapshot)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d ScoreDetails) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Snapshot)
}

func (d *ScoreDetails) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ScoreDetails{}
		return nil
	}
	var s ScoreSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = NewScoreDetails(s)
	return nil
}
