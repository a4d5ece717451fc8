// Package dialogue implements the profile wizard: a linear sequence of stages,
// each validating one field, with the in-progress values kept in a Draft that
// lives in Redis for the duration of the conversation.
package dialogue

import (
	"github.com/oggyb/matchmaker/internal/db"
)

type Stage int

const (
	StageName Stage = iota + 1
	StageAge
	StageGender
	StagePhoto
	StageGoal
	StageDescription
	StageDone
)

var stageNames = map[Stage]string{
	StageName:        "name",
	StageAge:         "age",
	StageGender:      "gender",
	StagePhoto:       "photo",
	StageGoal:        "goal",
	StageDescription: "description",
	StageDone:        "done",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// next returns the stage following s. StageDone is absorbing.
func (s Stage) next() Stage {
	if s >= StageDone {
		return StageDone
	}
	return s + 1
}

// Draft accumulates field values until the wizard finishes.
type Draft struct {
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Gender      db.Gender `json:"gender"`
	PhotoRef    string    `json:"photo_ref"`
	NewPhoto    bool      `json:"new_photo"`
	Goal        db.Goal   `json:"goal"`
	Description string    `json:"description"`
}

// Session is one user's wizard state.
type Session struct {
	ExternalID int64  `json:"external_id"`
	UserID     uint64 `json:"user_id"`
	Stage      Stage  `json:"stage"`
	// Editing is set when the user already had a complete profile; it allows
	// skipping the photo and keeping the previous description.
	Editing bool  `json:"editing"`
	Draft   Draft `json:"draft"`
}

// Input is one user reply. PhotoRef is set when the reply carried a photo;
// Skip when the user pressed the skip control.
type Input struct {
	Text     string
	PhotoRef string
	Skip     bool
}

// Step describes where the wizard is after handling an input.
type Step struct {
	Stage Stage
	// Problem is a machine-readable rejection reason; empty when the input was accepted.
	Problem string
	// Moderation is the submission created or found when a photo was accepted.
	Moderation *db.ModerationItem
	// User is the saved profile once Stage is StageDone.
	User *db.User
}

// Rejection reasons reported in Step.Problem.
const (
	ProblemName        = "invalid_name"
	ProblemAge         = "invalid_age"
	ProblemGender      = "invalid_gender"
	ProblemPhoto       = "photo_required"
	ProblemGoal        = "invalid_goal"
	ProblemDescription = "description_too_long"
)
