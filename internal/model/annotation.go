package model

import "time"

// Judgment is a human verdict on a phrase/article pair.
type Judgment string

const (
	JudgmentPositive  Judgment = "+"
	JudgmentNegative  Judgment = "-"
	JudgmentUncertain Judgment = "?"
	// JudgmentNotFound records that a phrase matched no article at all.
	JudgmentNotFound Judgment = "n/f"
)

// Valid reports whether j is one of the defined judgments.
func (j Judgment) Valid() bool {
	switch j {
	case JudgmentPositive, JudgmentNegative, JudgmentUncertain, JudgmentNotFound:
		return true
	}
	return false
}

// Annotation is one human judgment on a candidate phrase. ArticleID is empty
// for not-found records.
type Annotation struct {
	Phrase    string
	ArticleID string
	Judgment  Judgment
	Timestamp time.Time
}
