package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/storage/database"
)

const classroomSelect = `SELECT c.id, c.name, c.description, c.join_code, c.teacher_id, c.created_at, c.updated_at,
	t.name AS teacher_name, t.email AS teacher_email,
	(SELECT COUNT(*) FROM enrollments ce WHERE ce.classroom_id = c.id) AS student_count`

type classroomRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Description  null.String `db:"description"`
	JoinCode     string      `db:"join_code"`
	TeacherID    string      `db:"teacher_id"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	TeacherName  string      `db:"teacher_name"`
	TeacherEmail null.String `db:"teacher_email"`
	StudentCount int         `db:"student_count"`
}

func (row classroomRow) toModel() classroom.Classroom {
	return classroom.Classroom{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description.String,
		JoinCode:     row.JoinCode,
		TeacherID:    row.TeacherID,
		Teacher:      &user.Summary{ID: row.TeacherID, Name: row.TeacherName, Email: row.TeacherEmail.String},
		StudentCount: row.StudentCount,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type studentClassroomRow struct {
	classroomRow
	StudentID       string    `db:"student_id"`
	StreakMendsUsed int       `db:"streak_mends_used"`
	JoinedAt        time.Time `db:"joined_at"`
}

const enrollmentSelect = `SELECT e.classroom_id, e.student_id, e.streak_mends_used, e.joined_at,
	s.name AS student_name, s.email AS student_email
	FROM enrollments e JOIN users s ON s.id = e.student_id`

type enrollmentRow struct {
	ClassroomID     string      `db:"classroom_id"`
	StudentID       string      `db:"student_id"`
	StreakMendsUsed int         `db:"streak_mends_used"`
	JoinedAt        time.Time   `db:"joined_at"`
	StudentName     string      `db:"student_name"`
	StudentEmail    null.String `db:"student_email"`
}

func (row enrollmentRow) toModel() classroom.Enrollment {
	return classroom.Enrollment{
		ClassroomID:     row.ClassroomID,
		StudentID:       row.StudentID,
		Student:         &user.Summary{ID: row.StudentID, Name: row.StudentName, Email: row.StudentEmail.String},
		StreakMendsUsed: row.StreakMendsUsed,
		JoinedAt:        row.JoinedAt.UTC(),
	}
}

func getEnrollment(ctx context.Context, ext sqlx.ExtContext, classroomID, studentID string) (classroom.Enrollment, error) {
	var row enrollmentRow
	q := ext.Rebind(enrollmentSelect + " WHERE e.classroom_id = ? AND e.student_id = ?")
	if err := sqlx.GetContext(ctx, ext, &row, q, classroomID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Enrollment{}, classroom.ErrNotEnrolled
		}
		return classroom.Enrollment{}, errors.Wrap(err, "selecting enrollment")
	}
	return row.toModel(), nil
}

type noteRow struct {
	ID           string      `db:"id"`
	ClassroomID  string      `db:"classroom_id"`
	Title        string      `db:"title"`
	Content      string      `db:"content"`
	RecordingURL null.String `db:"recording_url"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (row noteRow) toModel() classroom.Note {
	return classroom.Note{
		ID:           row.ID,
		ClassroomID:  row.ClassroomID,
		Title:        row.Title,
		Content:      row.Content,
		RecordingURL: row.RecordingURL.String,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

type classroomRepository struct {
	db *database.DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *database.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) JoinCodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error) {
	ext := executor(repo.db, exec)
	var count int
	if err := sqlx.GetContext(ctx, ext, &count, ext.Rebind("SELECT COUNT(*) FROM classrooms WHERE join_code = ?"), code); err != nil {
		return false, errors.Wrap(err, "checking join code")
	}
	return count > 0, nil
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom, exec ...core.DBExecutor) (classroom.Classroom, error) {
	row := classroomRow{
		ID:          cls.ID,
		Name:        cls.Name,
		Description: null.NewString(cls.Description, cls.Description != ""),
		JoinCode:    cls.JoinCode,
		TeacherID:   cls.TeacherID,
		CreatedAt:   cls.CreatedAt.UTC(),
		UpdatedAt:   cls.UpdatedAt.UTC(),
	}
	q := `INSERT INTO classrooms (id, name, description, join_code, teacher_id, created_at, updated_at)
		VALUES (:id, :name, :description, :join_code, :teacher_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(repo.db, exec), q, row); err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

func (repo *classroomRepository) GetClassroom(ctx context.Context, filter classroom.GetFilter, exec ...core.DBExecutor) (classroom.Classroom, error) {
	ext := executor(repo.db, exec)

	var (
		conds []string
		args  []interface{}
	)
	if filter.ID != "" {
		conds, args = append(conds, "c.id = ?"), append(args, filter.ID)
	}
	if filter.JoinCode != "" {
		conds, args = append(conds, "c.join_code = ?"), append(args, filter.JoinCode)
	}
	if len(conds) == 0 {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	if filter.TeacherID != "" {
		conds, args = append(conds, "c.teacher_id = ?"), append(args, filter.TeacherID)
	}

	var row classroomRow
	q := ext.Rebind(classroomSelect + " FROM classrooms c JOIN users t ON t.id = c.teacher_id WHERE " + strings.Join(conds, " AND "))
	if err := sqlx.GetContext(ctx, ext, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "selecting classroom")
	}
	return row.toModel(), nil
}

func (repo *classroomRepository) QueryTeacherClassrooms(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]classroom.Classroom, error) {
	ext := executor(repo.db, exec)

	var rows []classroomRow
	q := ext.Rebind(classroomSelect + " FROM classrooms c JOIN users t ON t.id = c.teacher_id WHERE c.teacher_id = ? ORDER BY c.created_at DESC")
	if err := sqlx.SelectContext(ctx, ext, &rows, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "selecting classrooms")
	}

	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, row := range rows {
		classrooms = append(classrooms, row.toModel())
	}
	return classrooms, nil
}

func (repo *classroomRepository) QueryStudentClassrooms(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]classroom.StudentClassroom, error) {
	ext := executor(repo.db, exec)

	var rows []studentClassroomRow
	q := ext.Rebind(classroomSelect + `, e.student_id, e.streak_mends_used, e.joined_at
		FROM enrollments e
		JOIN classrooms c ON c.id = e.classroom_id
		JOIN users t ON t.id = c.teacher_id
		WHERE e.student_id = ? ORDER BY e.joined_at DESC`)
	if err := sqlx.SelectContext(ctx, ext, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting student classrooms")
	}

	classrooms := make([]classroom.StudentClassroom, 0, len(rows))
	for _, row := range rows {
		classrooms = append(classrooms, classroom.StudentClassroom{
			Classroom: row.classroomRow.toModel(),
			Enrollment: classroom.Enrollment{
				ClassroomID:     row.ID,
				StudentID:       row.StudentID,
				StreakMendsUsed: row.StreakMendsUsed,
				JoinedAt:        row.JoinedAt.UTC(),
			},
		})
	}
	return classrooms, nil
}

func (repo *classroomRepository) CreateEnrollment(ctx context.Context, enr classroom.Enrollment, exec ...core.DBExecutor) (classroom.Enrollment, error) {
	ext := executor(repo.db, exec)
	q := ext.Rebind("INSERT INTO enrollments (classroom_id, student_id, streak_mends_used, joined_at) VALUES (?, ?, ?, ?)")
	if _, err := ext.ExecContext(ctx, q, enr.ClassroomID, enr.StudentID, enr.StreakMendsUsed, enr.JoinedAt.UTC()); err != nil {
		return classroom.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo *classroomRepository) GetEnrollment(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (classroom.Enrollment, error) {
	return getEnrollment(ctx, executor(repo.db, exec), classroomID, studentID)
}

func (repo *classroomRepository) QueryEnrollments(ctx context.Context, classroomID string, exec ...core.DBExecutor) ([]classroom.Enrollment, error) {
	ext := executor(repo.db, exec)

	var rows []enrollmentRow
	q := ext.Rebind(enrollmentSelect + " WHERE e.classroom_id = ? ORDER BY e.joined_at, e.student_id")
	if err := sqlx.SelectContext(ctx, ext, &rows, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}

	enrollments := make([]classroom.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toModel())
	}
	return enrollments, nil
}

func (repo *classroomRepository) DeleteEnrollment(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (int, error) {
	ext := executor(repo.db, exec)
	res, err := ext.ExecContext(ctx, ext.Rebind("DELETE FROM enrollments WHERE classroom_id = ? AND student_id = ?"), classroomID, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting enrollment")
	}
	return rowsAffected(res)
}

func (repo *classroomRepository) CreateNote(ctx context.Context, note classroom.Note, exec ...core.DBExecutor) (classroom.Note, error) {
	row := noteRow{
		ID:           note.ID,
		ClassroomID:  note.ClassroomID,
		Title:        note.Title,
		Content:      note.Content,
		RecordingURL: null.NewString(note.RecordingURL, note.RecordingURL != ""),
		CreatedAt:    note.CreatedAt.UTC(),
	}
	q := `INSERT INTO class_notes (id, classroom_id, title, content, recording_url, created_at)
		VALUES (:id, :classroom_id, :title, :content, :recording_url, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(repo.db, exec), q, row); err != nil {
		return classroom.Note{}, errors.Wrap(err, "inserting note")
	}
	return row.toModel(), nil
}

func (repo *classroomRepository) QueryNotes(ctx context.Context, classroomID string, exec ...core.DBExecutor) ([]classroom.Note, error) {
	ext := executor(repo.db, exec)

	var rows []noteRow
	q := ext.Rebind("SELECT id, classroom_id, title, content, recording_url, created_at FROM class_notes WHERE classroom_id = ? ORDER BY created_at DESC")
	if err := sqlx.SelectContext(ctx, ext, &rows, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "selecting notes")
	}

	notes := make([]classroom.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.toModel())
	}
	return notes, nil
}
