package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/user"
)

type Classroom struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	JoinCode     string        `json:"join_code"`
	TeacherID    string        `json:"teacher_id"`
	Teacher      *user.Summary `json:"teacher,omitempty"`
	StudentCount int           `json:"student_count"`
	CreatedAt    time.Time     `json:"created_at"` // UTC
	UpdatedAt    time.Time     `json:"updated_at"` // UTC
}

// Enrollment links a student to a classroom and tracks the streak mends they used in it.
type Enrollment struct {
	ClassroomID     string        `json:"classroom_id"`
	StudentID       string        `json:"student_id"`
	Student         *user.Summary `json:"student,omitempty"`
	StreakMendsUsed int           `json:"streak_mends_used"`
	JoinedAt        time.Time     `json:"joined_at"` // UTC
}

// StudentClassroom is a classroom as seen by one of its students.
type StudentClassroom struct {
	Classroom
	Enrollment Enrollment `json:"enrollment"`
}

type Note struct {
	ID           string    `json:"id"`
	ClassroomID  string    `json:"classroom_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	RecordingURL string    `json:"recording_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

type NewClassroom struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type JoinRequest struct {
	JoinCode string `json:"join_code" validate:"required"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.JoinCode = NormalizeJoinCode(jr.JoinCode)
	return validate.Struct(jr)
}

type NewNote struct {
	Title        string `json:"title" validate:"required,max=255"`
	Content      string `json:"content" validate:"required"`
	RecordingURL string `json:"recording_url" validate:"omitempty,url"`
}

func (nn *NewNote) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Content = core.CleanString(nn.Content)
	nn.RecordingURL = core.CleanString(nn.RecordingURL)
	return validate.Struct(nn)
}

// GetFilter selects a single Classroom; ID or JoinCode is required.
// TeacherID further restricts the match to classrooms owned by that teacher.
type GetFilter struct {
	ID        string
	JoinCode  string
	TeacherID string
}
