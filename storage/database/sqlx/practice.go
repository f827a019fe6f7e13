package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/practice"
	"github.com/trezcool/riyaaz/storage/database"
)

const entryColumns = "id, classroom_id, student_id, practice_date, duration_minutes, tag, recording_url, notes, created_at"

// EntryOrderingFields maps the accepted ordering fields of practice entries to their columns.
var EntryOrderingFields = map[string]string{
	"date":             "practice_date",
	"created_at":       "created_at",
	"duration_minutes": "duration_minutes",
}

type entryRow struct {
	ID              string      `db:"id"`
	ClassroomID     string      `db:"classroom_id"`
	StudentID       string      `db:"student_id"`
	PracticeDate    time.Time   `db:"practice_date"`
	DurationMinutes int         `db:"duration_minutes"`
	Tag             string      `db:"tag"`
	RecordingURL    null.String `db:"recording_url"`
	Notes           string      `db:"notes"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (row entryRow) toModel() practice.Entry {
	return practice.Entry{
		ID:              row.ID,
		ClassroomID:     row.ClassroomID,
		StudentID:       row.StudentID,
		Date:            asDay(row.PracticeDate),
		DurationMinutes: row.DurationMinutes,
		Tag:             row.Tag,
		RecordingURL:    row.RecordingURL.String,
		Notes:           row.Notes,
		CreatedAt:       row.CreatedAt.UTC(),
	}
}

type practiceRepository struct {
	db *database.DB
}

var _ practice.Repository = (*practiceRepository)(nil)

func NewPracticeRepository(db *database.DB) practice.Repository {
	return &practiceRepository{db: db}
}

func (repo *practiceRepository) ListPracticeDates(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) ([]time.Time, error) {
	ext := executor(repo.db, exec)

	var dates []time.Time
	q := ext.Rebind("SELECT practice_date FROM practice_entries WHERE classroom_id = ? AND student_id = ?")
	if err := sqlx.SelectContext(ctx, ext, &dates, q, classroomID, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting practice dates")
	}
	for i := range dates {
		dates[i] = asDay(dates[i])
	}
	return dates, nil
}

func (repo *practiceRepository) PracticeEntryExists(ctx context.Context, classroomID, studentID string, from, to time.Time, exec ...core.DBExecutor) (bool, error) {
	ext := executor(repo.db, exec)

	var count int
	q := ext.Rebind(`SELECT COUNT(*) FROM practice_entries
		WHERE classroom_id = ? AND student_id = ? AND practice_date >= ? AND practice_date < ?`)
	if err := sqlx.GetContext(ctx, ext, &count, q, classroomID, studentID, from.UTC(), to.UTC()); err != nil {
		return false, errors.Wrap(err, "checking practice entry")
	}
	return count > 0, nil
}

func (repo *practiceRepository) InsertPracticeEntry(ctx context.Context, entry practice.Entry, exec ...core.DBExecutor) (practice.Entry, error) {
	row := entryRow{
		ID:              entry.ID,
		ClassroomID:     entry.ClassroomID,
		StudentID:       entry.StudentID,
		PracticeDate:    asDay(entry.Date),
		DurationMinutes: entry.DurationMinutes,
		Tag:             entry.Tag,
		RecordingURL:    null.NewString(entry.RecordingURL, entry.RecordingURL != ""),
		Notes:           entry.Notes,
		CreatedAt:       entry.CreatedAt.UTC(),
	}
	q := "INSERT INTO practice_entries (" + entryColumns + ") " +
		"VALUES (:id, :classroom_id, :student_id, :practice_date, :duration_minutes, :tag, :recording_url, :notes, :created_at)"
	if _, err := sqlx.NamedExecContext(ctx, executor(repo.db, exec), q, row); err != nil {
		return practice.Entry{}, errors.Wrap(err, "inserting practice entry")
	}
	return row.toModel(), nil
}

func (repo *practiceRepository) QueryPracticeEntries(ctx context.Context, classroomID, studentID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]practice.Entry, error) {
	ext := executor(repo.db, exec)

	var rows []entryRow
	q := ext.Rebind("SELECT " + entryColumns + " FROM practice_entries WHERE classroom_id = ? AND student_id = ?" +
		orderBy(ordering, EntryOrderingFields))
	if err := sqlx.SelectContext(ctx, ext, &rows, q, classroomID, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting practice entries")
	}

	entries := make([]practice.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toModel())
	}
	return entries, nil
}

func (repo *practiceRepository) CountHomeworkSubmissions(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (int, error) {
	ext := executor(repo.db, exec)

	var count int
	q := ext.Rebind(`SELECT COUNT(*) FROM homework_submissions s
		JOIN homework_assignments a ON a.id = s.assignment_id
		WHERE a.classroom_id = ? AND s.student_id = ?`)
	if err := sqlx.GetContext(ctx, ext, &count, q, classroomID, studentID); err != nil {
		return 0, errors.Wrap(err, "counting homework submissions")
	}
	return count, nil
}

func (repo *practiceRepository) GetEnrollment(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (classroom.Enrollment, error) {
	return getEnrollment(ctx, executor(repo.db, exec), classroomID, studentID)
}

func (repo *practiceRepository) IncrementMendCount(ctx context.Context, classroomID, studentID string, expected int, exec ...core.DBExecutor) (int, error) {
	ext := executor(repo.db, exec)
	q := ext.Rebind(`UPDATE enrollments SET streak_mends_used = streak_mends_used + 1
		WHERE classroom_id = ? AND student_id = ? AND streak_mends_used = ?`)
	res, err := ext.ExecContext(ctx, q, classroomID, studentID, expected)
	if err != nil {
		return 0, errors.Wrap(err, "incrementing mend count")
	}
	return rowsAffected(res)
}

type recentEntryRow struct {
	entryRow
	StudentName string `db:"student_name"`
}

func (repo *practiceRepository) QueryRecentEntries(ctx context.Context, classroomID string, limit int, exec ...core.DBExecutor) ([]practice.RecentEntry, error) {
	ext := executor(repo.db, exec)

	var rows []recentEntryRow
	q := ext.Rebind(`SELECT p.id, p.classroom_id, p.student_id, p.practice_date, p.duration_minutes, p.tag,
		p.recording_url, p.notes, p.created_at, u.name AS student_name
		FROM practice_entries p JOIN users u ON u.id = p.student_id
		WHERE p.classroom_id = ? ORDER BY p.created_at DESC LIMIT ?`)
	if err := sqlx.SelectContext(ctx, ext, &rows, q, classroomID, limit); err != nil {
		return nil, errors.Wrap(err, "selecting recent practice entries")
	}

	recent := make([]practice.RecentEntry, 0, len(rows))
	for _, row := range rows {
		recent = append(recent, practice.RecentEntry{Entry: row.entryRow.toModel(), StudentName: row.StudentName})
	}
	return recent, nil
}

func (repo *practiceRepository) QueryRecentSubmissions(ctx context.Context, classroomID string, limit int, exec ...core.DBExecutor) ([]practice.RecentSubmission, error) {
	ext := executor(repo.db, exec)

	var rows []struct {
		StudentName     string    `db:"student_name"`
		AssignmentTitle string    `db:"assignment_title"`
		SubmittedAt     time.Time `db:"submitted_at"`
	}
	q := ext.Rebind(`SELECT u.name AS student_name, a.title AS assignment_title, s.submitted_at
		FROM homework_submissions s
		JOIN homework_assignments a ON a.id = s.assignment_id
		JOIN users u ON u.id = s.student_id
		WHERE a.classroom_id = ? ORDER BY s.submitted_at DESC LIMIT ?`)
	if err := sqlx.SelectContext(ctx, ext, &rows, q, classroomID, limit); err != nil {
		return nil, errors.Wrap(err, "selecting recent submissions")
	}

	recent := make([]practice.RecentSubmission, 0, len(rows))
	for _, row := range rows {
		recent = append(recent, practice.RecentSubmission{
			StudentName:     row.StudentName,
			AssignmentTitle: row.AssignmentTitle,
			SubmittedAt:     row.SubmittedAt.UTC(),
		})
	}
	return recent, nil
}
