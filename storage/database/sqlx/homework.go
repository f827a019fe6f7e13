package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/homework"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/storage/database"
)

const assignmentSelect = `SELECT a.id, a.classroom_id, a.title, a.description, a.due_date, a.created_at,
	(SELECT COUNT(*) FROM homework_submissions hs WHERE hs.assignment_id = a.id) AS submission_count
	FROM homework_assignments a`

type assignmentRow struct {
	ID              string    `db:"id"`
	ClassroomID     string    `db:"classroom_id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	DueDate         null.Time `db:"due_date"`
	CreatedAt       time.Time `db:"created_at"`
	SubmissionCount int       `db:"submission_count"`
}

func (row assignmentRow) toModel() homework.Assignment {
	asgmt := homework.Assignment{
		ID:              row.ID,
		ClassroomID:     row.ClassroomID,
		Title:           row.Title,
		Description:     row.Description,
		CreatedAt:       row.CreatedAt.UTC(),
		SubmissionCount: row.SubmissionCount,
	}
	if row.DueDate.Valid {
		due := row.DueDate.Time.UTC()
		asgmt.DueDate = &due
	}
	return asgmt
}

const submissionSelect = `SELECT s.id, s.assignment_id, s.student_id, s.recording_url, s.notes, s.submitted_at,
	u.name AS student_name, u.email AS student_email
	FROM homework_submissions s JOIN users u ON u.id = s.student_id`

type submissionRow struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	RecordingURL string      `db:"recording_url"`
	Notes        null.String `db:"notes"`
	SubmittedAt  time.Time   `db:"submitted_at"`
	StudentName  string      `db:"student_name"`
	StudentEmail null.String `db:"student_email"`
}

func (row submissionRow) toModel() homework.Submission {
	return homework.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		Student:      &user.Summary{ID: row.StudentID, Name: row.StudentName, Email: row.StudentEmail.String},
		RecordingURL: row.RecordingURL,
		Notes:        row.Notes.String,
		SubmittedAt:  row.SubmittedAt.UTC(),
	}
}

type homeworkRepository struct {
	db *database.DB
}

var _ homework.Repository = (*homeworkRepository)(nil)

func NewHomeworkRepository(db *database.DB) homework.Repository {
	return &homeworkRepository{db: db}
}

func (repo *homeworkRepository) CreateAssignment(ctx context.Context, asgmt homework.Assignment, exec ...core.DBExecutor) (homework.Assignment, error) {
	row := assignmentRow{
		ID:          asgmt.ID,
		ClassroomID: asgmt.ClassroomID,
		Title:       asgmt.Title,
		Description: asgmt.Description,
		CreatedAt:   asgmt.CreatedAt.UTC(),
	}
	if asgmt.DueDate != nil {
		row.DueDate = null.TimeFrom(asgmt.DueDate.UTC())
	}
	q := `INSERT INTO homework_assignments (id, classroom_id, title, description, due_date, created_at)
		VALUES (:id, :classroom_id, :title, :description, :due_date, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(repo.db, exec), q, row); err != nil {
		return homework.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return row.toModel(), nil
}

func (repo *homeworkRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (homework.Assignment, error) {
	ext := executor(repo.db, exec)

	var row assignmentRow
	if err := sqlx.GetContext(ctx, ext, &row, ext.Rebind(assignmentSelect+" WHERE a.id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return homework.Assignment{}, homework.ErrNotFound
		}
		return homework.Assignment{}, errors.Wrap(err, "selecting assignment")
	}
	return row.toModel(), nil
}

func (repo *homeworkRepository) QueryAssignments(ctx context.Context, classroomID string, exec ...core.DBExecutor) ([]homework.Assignment, error) {
	ext := executor(repo.db, exec)

	var rows []assignmentRow
	q := ext.Rebind(assignmentSelect + " WHERE a.classroom_id = ? ORDER BY a.created_at DESC")
	if err := sqlx.SelectContext(ctx, ext, &rows, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}

	asgmts := make([]homework.Assignment, 0, len(rows))
	for _, row := range rows {
		asgmts = append(asgmts, row.toModel())
	}
	return asgmts, nil
}

func (repo *homeworkRepository) CreateSubmission(ctx context.Context, sub homework.Submission, exec ...core.DBExecutor) (homework.Submission, error) {
	ext := executor(repo.db, exec)
	q := ext.Rebind(`INSERT INTO homework_submissions (id, assignment_id, student_id, recording_url, notes, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	notes := null.NewString(sub.Notes, sub.Notes != "")
	if _, err := ext.ExecContext(ctx, q, sub.ID, sub.AssignmentID, sub.StudentID, sub.RecordingURL, notes, sub.SubmittedAt.UTC()); err != nil {
		return homework.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo *homeworkRepository) GetSubmission(ctx context.Context, assignmentID, studentID string, exec ...core.DBExecutor) (homework.Submission, error) {
	ext := executor(repo.db, exec)

	var row submissionRow
	q := ext.Rebind(submissionSelect + " WHERE s.assignment_id = ? AND s.student_id = ?")
	if err := sqlx.GetContext(ctx, ext, &row, q, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return homework.Submission{}, homework.ErrSubmissionNotFound
		}
		return homework.Submission{}, errors.Wrap(err, "selecting submission")
	}
	return row.toModel(), nil
}

func (repo *homeworkRepository) QueryStudentSubmissions(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) ([]homework.Submission, error) {
	ext := executor(repo.db, exec)
	q := ext.Rebind(submissionSelect + `
		JOIN homework_assignments a ON a.id = s.assignment_id
		WHERE a.classroom_id = ? AND s.student_id = ?`)
	return repo.selectSubmissions(ctx, ext, q, classroomID, studentID)
}

func (repo *homeworkRepository) QuerySubmissions(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]homework.Submission, error) {
	ext := executor(repo.db, exec)
	q := ext.Rebind(submissionSelect + " WHERE s.assignment_id = ? ORDER BY s.submitted_at DESC")
	return repo.selectSubmissions(ctx, ext, q, assignmentID)
}

func (repo *homeworkRepository) selectSubmissions(ctx context.Context, ext sqlx.ExtContext, q string, args ...interface{}) ([]homework.Submission, error) {
	var rows []submissionRow
	if err := sqlx.SelectContext(ctx, ext, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}

	subs := make([]homework.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toModel())
	}
	return subs, nil
}
