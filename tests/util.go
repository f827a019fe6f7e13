package testutil

import (
	"context"
	"net/mail"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/practice"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/storage/database"
)

// tables in deletion order
var tables = []string{
	"homework_submissions",
	"homework_assignments",
	"practice_entries",
	"class_notes",
	"enrollments",
	"classrooms",
	"users",
}

// NewConfig returns a test configuration backed by the sqlite database at dbPath.
func NewConfig(dbPath string) *core.Config {
	return &core.Config{
		AppName:                   "Riyaaz",
		Env:                       "test",
		Debug:                     true,
		TestMode:                  true,
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Riyaaz", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		TimeZone:                  "UTC",
		Location:                  time.UTC,
		Database: core.DatabaseConfig{
			Engine:       database.EngineSQLite,
			Path:         dbPath,
			MaxOpenConns: 4,
		},
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Email:    core.EmailConfig{Backend: "console"},
		Practice: core.PracticeConfig{MendMaxAttempts: 3},
	}
}

// OpenDB opens and migrates the database described by conf.
func OpenDB(conf *core.Config) (*database.DB, error) {
	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(ctx, db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MustOpenDB opens a migrated throwaway sqlite database, closed when the test ends.
func MustOpenDB(t testing.TB) (*database.DB, *core.Config) {
	t.Helper()
	conf := NewConfig(filepath.Join(t.TempDir(), "riyaaz_test.db"))
	db, err := OpenDB(conf)
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, conf
}

// ResetDB deletes every row of the application tables.
func ResetDB(t testing.TB, db *database.DB) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("ResetDB(%s): %v", table, err)
		}
	}
}

func CreateUser(
	t testing.TB,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClassroom(t testing.TB, repo classroom.Repository, teacher user.User, name, joinCode string, createdAt ...time.Time) classroom.Classroom {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if _, err := repo.CreateClassroom(context.Background(), classroom.Classroom{
		ID:        uuid.New().String(),
		Name:      name,
		JoinCode:  joinCode,
		TeacherID: teacher.ID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}); err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	cls, err := repo.GetClassroom(context.Background(), classroom.GetFilter{JoinCode: joinCode})
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return cls
}

func Enroll(t testing.TB, repo classroom.Repository, cls classroom.Classroom, student user.User, joinedAt ...time.Time) classroom.Enrollment {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(joinedAt) > 0 {
		tstamp = joinedAt[0].UTC()
	}
	if _, err := repo.CreateEnrollment(context.Background(), classroom.Enrollment{
		ClassroomID: cls.ID,
		StudentID:   student.ID,
		JoinedAt:    tstamp,
	}); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	enr, err := repo.GetEnrollment(context.Background(), cls.ID, student.ID)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

// LogPractice inserts a practice entry for every day, bypassing the future date check.
func LogPractice(t testing.TB, repo practice.Repository, cls classroom.Classroom, student user.User, minutes int, days ...time.Time) []practice.Entry {
	t.Helper()
	entries := make([]practice.Entry, 0, len(days))
	for _, day := range days {
		entry, err := repo.InsertPracticeEntry(context.Background(), practice.Entry{
			ID:              uuid.New().String(),
			ClassroomID:     cls.ID,
			StudentID:       student.ID,
			Date:            day,
			DurationMinutes: minutes,
			Tag:             "Yaman",
			Notes:           "alaap and jor",
			CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
		})
		if err != nil {
			t.Fatalf("LogPractice() failed: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}
