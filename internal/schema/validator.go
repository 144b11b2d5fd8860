// Package schema validates event payloads before they are published.
package schema

import (
	"errors"
	"fmt"

	"ai-interview-orchestrator/internal/models"
)

var (
	ErrMissingSessionID = errors.New("event is missing a session id")
	ErrMissingSegmentID = errors.New("event is missing a segment id")
	ErrEmptyText        = errors.New("transcript event has empty text")
)

// Validator checks outgoing events against the orchestrator's
// invariants: identifiers present, every score bounded to [1,10].
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateTranscript checks a transcript segment event.
func (v *Validator) ValidateTranscript(ev models.TranscriptSegmentEvent) error {
	if ev.SessionID == "" {
		return ErrMissingSessionID
	}
	if ev.SegmentID == "" {
		return ErrMissingSegmentID
	}
	if ev.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateReport checks an evaluation report event, including the
// bounded-score invariant on both the report and the visual metrics.
func (v *Validator) ValidateReport(ev models.EvaluationReportEvent) error {
	if ev.SessionID == "" {
		return ErrMissingSessionID
	}
	scores := map[string]int{
		"overall_score":     ev.Report.OverallScore,
		"tone_score":        ev.Report.ToneScore,
		"posture_score":     ev.Report.PostureScore,
		"outfit_score":      ev.Report.OutfitScore,
		"confidence_score":  ev.Report.ConfidenceScore,
		"eye_contact":       ev.Visual.EyeContact,
		"posture":           ev.Visual.Posture,
		"outfit":            ev.Visual.Outfit,
		"confidence_signal": ev.Visual.ConfidenceSignal,
		"lighting_score":    ev.Visual.Lighting,
	}
	for name, score := range scores {
		if score < 1 || score > 10 {
			return fmt.Errorf("score %s out of range: %d", name, score)
		}
	}
	return nil
}
