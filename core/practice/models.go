package practice

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/riyaaz/core"
)

const (
	MendTag   = "Streak Mend"
	mendNotes = "Streak mended using points"

	ActivityRiyaaz   = "riyaaz"
	ActivityHomework = "homework"

	recentActivityLimit = 20
)

// Entry is one practice session. Date holds the calendar day as midnight UTC.
type Entry struct {
	ID              string    `json:"id"`
	ClassroomID     string    `json:"classroom_id"`
	StudentID       string    `json:"student_id"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Tag             string    `json:"tag"`
	RecordingURL    string    `json:"recording_url,omitempty"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

func (e Entry) IsMend() bool {
	return e.DurationMinutes == 0 && e.Tag == MendTag
}

type NewEntry struct {
	Date            string `json:"date" validate:"required,isodate"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=1440"`
	Tag             string `json:"tag" validate:"required,max=255"`
	RecordingURL    string `json:"recording_url" validate:"omitempty,url"`
	Notes           string `json:"notes" validate:"required"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Date = core.CleanString(ne.Date)
	ne.Tag = core.CleanString(ne.Tag)
	ne.RecordingURL = core.CleanString(ne.RecordingURL)
	ne.Notes = core.CleanString(ne.Notes)
	return validate.Struct(ne)
}

type MendRequest struct {
	MissedDate string `json:"missed_date" validate:"required,isodate"`
}

func (mr *MendRequest) Validate(validate *validator.Validate) error {
	mr.MissedDate = core.CleanString(mr.MissedDate)
	return validate.Struct(mr)
}

type MendResult struct {
	Message         string `json:"message"`
	PointsSpent     int    `json:"points_spent"`
	RemainingPoints int    `json:"remaining_points"`
	StreakMendsUsed int    `json:"streak_mends_used"`
}

type Stats struct {
	CurrentStreak            int        `json:"current_streak"`
	LongestStreak            int        `json:"longest_streak"`
	TotalPoints              int        `json:"total_points"`
	AvailablePoints          int        `json:"available_points"`
	StreakMendsUsed          int        `json:"streak_mends_used"`
	LastPracticedDate        *time.Time `json:"last_practiced_date"`
	TotalRiyaazDays          int        `json:"total_riyaaz_days"`
	TotalHomeworkSubmissions int        `json:"total_homework_submissions"`
}

type LeaderboardEntry struct {
	StudentID         string     `json:"student_id"`
	StudentName       string     `json:"student_name"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	TotalPoints       int        `json:"total_points"`
	AvailablePoints   int        `json:"available_points"`
	LastPracticedDate *time.Time `json:"last_practiced_date"`

	joinedAt time.Time
}

// Activity is an item of a classroom's recent activity feed.
type Activity struct {
	Type        string    `json:"type"`
	StudentName string    `json:"student_name"`
	Details     string    `json:"details"`
	Date        time.Time `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecentEntry is a practice entry with the name of the student who logged it.
type RecentEntry struct {
	Entry
	StudentName string
}

// RecentSubmission is a homework submission with its student name and assignment title.
type RecentSubmission struct {
	StudentName     string
	AssignmentTitle string
	SubmittedAt     time.Time
}
