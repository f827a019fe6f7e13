package homework

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/user"
)

type Assignment struct {
	ID              string     `json:"id"`
	ClassroomID     string     `json:"classroom_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DueDate         *time.Time `json:"due_date"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	SubmissionCount int        `json:"submission_count"`

	// student view only
	Submitted  *bool       `json:"submitted,omitempty"`
	Submission *Submission `json:"submission,omitempty"`
}

type Submission struct {
	ID           string        `json:"id"`
	AssignmentID string        `json:"assignment_id"`
	StudentID    string        `json:"student_id"`
	Student      *user.Summary `json:"student,omitempty"`
	RecordingURL string        `json:"recording_url"`
	Notes        string        `json:"notes"`
	SubmittedAt  time.Time     `json:"submitted_at"` // UTC
}

type NewAssignment struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	DueDate     string `json:"due_date" validate:"omitempty,isodate"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.DueDate = core.CleanString(na.DueDate)
	return validate.Struct(na)
}

type NewSubmission struct {
	RecordingURL string `json:"recording_url" validate:"required,url"`
	Notes        string `json:"notes" validate:"max=5000"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.RecordingURL = core.CleanString(ns.RecordingURL)
	ns.Notes = core.CleanString(ns.Notes)
	return validate.Struct(ns)
}
