package core

import (
	"time"
)

// EmailContext carries the message-level metadata used by stages 1 and 2
type EmailContext struct {
	SenderAddress   string
	Subject         string
	AttachmentCount int
}

// AttachmentMetadata describes one attachment without its content
type AttachmentMetadata struct {
	ID        string
	Filename  string
	MimeType  string
	SizeBytes int64
}

// Band is the Stage-2 confidence band of an attachment
type Band string

const (
	BandNone   Band = ""
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// State is the lifecycle state of a single attachment within one run
type State string

const (
	StateNew            State = "NEW"
	StateRejectedStage1 State = "REJECTED_STAGE1"
	StateScored         State = "SCORED"
	StateAcceptedHigh   State = "ACCEPTED_HIGH"
	StateRejectedLow    State = "REJECTED_LOW"
	StatePendingAI      State = "PENDING_AI"
	StateClassified     State = "CLASSIFIED"
)

// Terminal reports whether no further transition is allowed from s
func (s State) Terminal() bool {
	switch s {
	case StateRejectedStage1, StateAcceptedHigh, StateRejectedLow, StateClassified:
		return true
	default:
		return false
	}
}

// ScoreBreakdown is the Stage-2 heuristic score of one attachment
type ScoreBreakdown struct {
	FilenameScore   int
	SubjectScore    int
	PropertiesScore int
	SenderScore     int
	Total           int
}

// AIVerdict is the Stage-3 classifier outcome
type AIVerdict struct {
	IsMatch          bool    `json:"isMatch"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
	InsufficientText bool    `json:"insufficientText"`
}

// DetectionResult is the final decision for one attachment
type DetectionResult struct {
	Attachment      AttachmentMetadata
	State           State
	Band            Band
	Stage2          ScoreBreakdown
	AIVerdict       *AIVerdict
	FinalConfidence float64
	IsMatch         bool
	Reason          string
}

// ProcessingSummary aggregates the results of one Run call
type ProcessingSummary struct {
	ID             string
	Policy         string
	ShouldProcess  bool
	FilterReason   string
	Detected       bool
	Results        []DetectionResult
	ProcessingTime time.Duration
	BestResult     *DetectionResult
}

// ProcessingTimeMs returns the processing time in milliseconds
func (s *ProcessingSummary) ProcessingTimeMs() int64 {
	return s.ProcessingTime.Milliseconds()
}

// CacheEntry is a cached Stage-3 verdict keyed by policy and content
type CacheEntry struct {
	Key        string
	Policy     string
	IsMatch    bool
	Confidence float64
	Reason     string
	LastSeen   time.Time
	ExpiresAt  time.Time
}

// Verdict converts the entry back into a classifier verdict
func (e *CacheEntry) Verdict() AIVerdict {
	return AIVerdict{
		IsMatch:    e.IsMatch,
		Confidence: e.Confidence,
		Reason:     e.Reason,
	}
}
