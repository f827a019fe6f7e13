package sqlxrepos_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/homework"
	"github.com/trezcool/riyaaz/core/practice"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/storage/database"
	"github.com/trezcool/riyaaz/storage/database/sqlx"
	"github.com/trezcool/riyaaz/tests"
)

type repos struct {
	db        *database.DB
	conf      *core.Config
	users     user.Repository
	classes   classroom.Repository
	practices practice.Repository
	homework  homework.Repository
}

func setUp(t *testing.T) repos {
	db, conf := testutil.MustOpenDB(t)
	return repos{
		db:        db,
		conf:      conf,
		users:     sqlxrepos.NewUserRepository(db),
		classes:   sqlxrepos.NewClassroomRepository(db),
		practices: sqlxrepos.NewPracticeRepository(db),
		homework:  sqlxrepos.NewHomeworkRepository(db),
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestUserRepository(t *testing.T) {
	r := setUp(t)
	ctx := context.Background()

	ravi := testutil.CreateUser(t, r.users, "Ravi", "ravi@test.cd", "Sitar#Raag9", []string{user.RoleTeacher}, true)
	asha := testutil.CreateUser(t, r.users, "Asha", "asha@test.cd", "", []string{user.RoleStudent}, false)

	got, err := r.users.GetUser(ctx, user.GetFilter{Email: "ravi@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, ravi, got)
	assert.NoError(t, got.CheckPassword("Sitar#Raag9"))
	assert.True(t, got.IsTeacher())

	got, err = r.users.GetUser(ctx, user.GetFilter{UsernameOrEmail: "asha@test.cd"})
	require.NoError(t, err)
	assert.False(t, *got.IsActive)

	_, err = r.users.GetUser(ctx, user.GetFilter{ID: "unknown"})
	assert.Equal(t, user.ErrNotFound, err)

	assert.Equal(t, user.ErrEmailExists, r.users.CheckUniqueness(ctx, "", "asha@test.cd", nil))
	assert.NoError(t, r.users.CheckUniqueness(ctx, "", "asha@test.cd", []user.User{asha}))
	assert.NoError(t, r.users.CheckUniqueness(ctx, "asha", "new@test.cd", nil))

	asha.Username = "asha"
	asha.LastLogin = time.Now().UTC().Truncate(time.Microsecond)
	_, err = r.users.UpdateUser(ctx, asha)
	require.NoError(t, err)
	got, err = r.users.GetUser(ctx, user.GetFilter{Username: "asha"})
	require.NoError(t, err)
	assert.Equal(t, asha.ID, got.ID)
	assert.True(t, asha.LastLogin.Equal(got.LastLogin))
	assert.Equal(t, user.ErrUsernameExists, r.users.CheckUniqueness(ctx, "asha", "", nil))

	admin := user.User{Name: "Admin", Username: "admin", Email: "admin@test.cd", Roles: []string{user.RoleAdmin}}
	admin.SetActive(true)
	admin, err = r.users.UpdateOrCreateUser(ctx, admin)
	require.NoError(t, err)
	assert.NotEmpty(t, admin.ID)

	admin.Name = "Super Admin"
	admin.ID = ""
	updated, err := r.users.UpdateOrCreateUser(ctx, admin)
	require.NoError(t, err)
	got, err = r.users.GetUser(ctx, user.GetFilter{Username: "admin"})
	require.NoError(t, err)
	assert.Equal(t, updated.ID, got.ID)
	assert.Equal(t, "Super Admin", got.Name)
}

func TestClassroomRepository(t *testing.T) {
	r := setUp(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	teacher := testutil.CreateUser(t, r.users, "Guru", "guru@test.cd", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, r.users, "Other", "other@test.cd", "", []string{user.RoleTeacher}, true)
	asha := testutil.CreateUser(t, r.users, "Asha", "asha@test.cd", "", []string{user.RoleStudent}, true)
	bina := testutil.CreateUser(t, r.users, "Bina", "bina@test.cd", "", []string{user.RoleStudent}, true)

	vocal := testutil.CreateClassroom(t, r.classes, teacher, "Vocal", "RZ-VOC1", now.Add(-time.Hour))
	sitar := testutil.CreateClassroom(t, r.classes, teacher, "Sitar", "RZ-SIT1", now)
	testutil.CreateClassroom(t, r.classes, other, "Tabla", "RZ-TAB1", now)

	exists, err := r.classes.JoinCodeExists(ctx, "RZ-VOC1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = r.classes.JoinCodeExists(ctx, "RZ-NONE")
	require.NoError(t, err)
	assert.False(t, exists)

	testutil.Enroll(t, r.classes, vocal, asha, now.Add(-2*time.Minute))
	testutil.Enroll(t, r.classes, vocal, bina, now.Add(-time.Minute))
	testutil.Enroll(t, r.classes, sitar, asha, now)

	got, err := r.classes.GetClassroom(ctx, classroom.GetFilter{ID: vocal.ID, TeacherID: teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, got.StudentCount)
	assert.Equal(t, &user.Summary{ID: teacher.ID, Name: "Guru", Email: "guru@test.cd"}, got.Teacher)

	_, err = r.classes.GetClassroom(ctx, classroom.GetFilter{ID: vocal.ID, TeacherID: other.ID})
	assert.Equal(t, classroom.ErrNotFound, err)
	_, err = r.classes.GetClassroom(ctx, classroom.GetFilter{})
	assert.Equal(t, classroom.ErrNotFound, err)

	owned, err := r.classes.QueryTeacherClassrooms(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, sitar.ID, owned[0].ID)
	assert.Equal(t, vocal.ID, owned[1].ID)

	joined, err := r.classes.QueryStudentClassrooms(ctx, asha.ID)
	require.NoError(t, err)
	require.Len(t, joined, 2)
	assert.Equal(t, sitar.ID, joined[0].ID)
	assert.Equal(t, asha.ID, joined[0].Enrollment.StudentID)
	assert.Equal(t, "Guru", joined[0].Teacher.Name)

	roster, err := r.classes.QueryEnrollments(ctx, vocal.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Asha", roster[0].Student.Name)
	assert.Equal(t, "Bina", roster[1].Student.Name)

	n, err := r.classes.DeleteEnrollment(ctx, vocal.ID, bina.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = r.classes.GetEnrollment(ctx, vocal.ID, bina.ID)
	assert.Equal(t, classroom.ErrNotEnrolled, err)
	n, err = r.classes.DeleteEnrollment(ctx, vocal.ID, bina.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i, title := range []string{"Alankar", "Paltas"} {
		_, err = r.classes.CreateNote(ctx, classroom.Note{
			ID: fmt.Sprint("note-", i), ClassroomID: vocal.ID, Title: title, Content: "practice slowly",
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	notes, err := r.classes.QueryNotes(ctx, vocal.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Paltas", notes[0].Title)
	assert.Empty(t, notes[0].RecordingURL)
}

func TestPracticeRepository(t *testing.T) {
	r := setUp(t)
	ctx := context.Background()
	today := practice.Day(time.Now(), time.UTC)

	teacher := testutil.CreateUser(t, r.users, "Guru", "guru@test.cd", "", []string{user.RoleTeacher}, true)
	asha := testutil.CreateUser(t, r.users, "Asha", "asha@test.cd", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClassroom(t, r.classes, teacher, "Vocal", "RZ-VOC1")
	testutil.Enroll(t, r.classes, cls, asha)

	testutil.LogPractice(t, r.practices, cls, asha, 30, today, today, today.AddDate(0, 0, -2))

	dates, err := r.practices.ListPracticeDates(ctx, cls.ID, asha.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []time.Time{today, today, today.AddDate(0, 0, -2)}, dates)

	for _, tt := range []struct {
		day  time.Time
		want bool
	}{
		{day: today, want: true},
		{day: today.AddDate(0, 0, -1), want: false},
		{day: today.AddDate(0, 0, -2), want: true},
	} {
		got, err := r.practices.PracticeEntryExists(ctx, cls.ID, asha.ID, tt.day, tt.day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.day)
	}

	entries, err := r.practices.QueryPracticeEntries(ctx, cls.ID, asha.ID, []core.DBOrdering{{Field: "date", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, today.AddDate(0, 0, -2), entries[0].Date)

	n, err := r.practices.IncrementMendCount(ctx, cls.ID, asha.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = r.practices.IncrementMendCount(ctx, cls.ID, asha.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	enr, err := r.practices.GetEnrollment(ctx, cls.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enr.StreakMendsUsed)

	recent, err := r.practices.QueryRecentEntries(ctx, cls.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Asha", recent[0].StudentName)
}

func TestHomeworkRepository(t *testing.T) {
	r := setUp(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	teacher := testutil.CreateUser(t, r.users, "Guru", "guru@test.cd", "", []string{user.RoleTeacher}, true)
	asha := testutil.CreateUser(t, r.users, "Asha", "asha@test.cd", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClassroom(t, r.classes, teacher, "Vocal", "RZ-VOC1")
	testutil.Enroll(t, r.classes, cls, asha)

	due := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	asgmt, err := r.homework.CreateAssignment(ctx, homework.Assignment{
		ID: "hw-1", ClassroomID: cls.ID, Title: "Record Yaman", Description: "slow alaap", DueDate: &due, CreatedAt: now,
	})
	require.NoError(t, err)

	_, err = r.homework.GetSubmission(ctx, asgmt.ID, asha.ID)
	assert.Equal(t, homework.ErrSubmissionNotFound, err)

	_, err = r.homework.CreateSubmission(ctx, homework.Submission{
		ID: "sub-1", AssignmentID: asgmt.ID, StudentID: asha.ID, RecordingURL: "https://rec.test/1", SubmittedAt: now,
	})
	require.NoError(t, err)

	// unique (assignment, student)
	_, err = r.homework.CreateSubmission(ctx, homework.Submission{
		ID: "sub-2", AssignmentID: asgmt.ID, StudentID: asha.ID, RecordingURL: "https://rec.test/2", SubmittedAt: now,
	})
	assert.Error(t, err)

	got, err := r.homework.GetAssignment(ctx, asgmt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SubmissionCount)
	assert.Equal(t, &due, got.DueDate)

	subs, err := r.homework.QuerySubmissions(ctx, asgmt.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Asha", subs[0].Student.Name)

	count, err := r.practices.CountHomeworkSubmissions(ctx, cls.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	recent, err := r.practices.QueryRecentSubmissions(ctx, cls.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, []practice.RecentSubmission{{StudentName: "Asha", AssignmentTitle: "Record Yaman", SubmittedAt: now}}, recent)
}

func TestPracticeService_ConcurrentMends(t *testing.T) {
	r := setUp(t)
	ctx := context.Background()
	today := practice.Day(time.Now(), time.UTC)

	teacher := testutil.CreateUser(t, r.users, "Guru", "guru@test.cd", "", []string{user.RoleTeacher}, true)
	asha := testutil.CreateUser(t, r.users, "Asha", "asha@test.cd", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClassroom(t, r.classes, teacher, "Vocal", "RZ-VOC1")
	testutil.Enroll(t, r.classes, cls, asha)

	days := make([]time.Time, 0, 10)
	for i := 1; i <= 10; i++ {
		days = append(days, today.AddDate(0, 0, -i))
	}
	testutil.LogPractice(t, r.practices, cls, asha, 20, days...) // 100 points

	svc := practice.NewService(r.db, r.practices, r.classes, r.conf, nopLogger{}, nil)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(missed time.Time) {
			defer wg.Done()
			_, err := svc.MendStreak(ctx, cls.ID, asha.ID, missed)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, practice.ErrInsufficientPoints), errors.Is(err, practice.ErrMendConflict):
			default:
				t.Errorf("MendStreak(): unexpected error %v", err)
			}
		}(today.AddDate(0, 0, -11-i))
	}
	wg.Wait()

	stats, err := svc.Stats(ctx, cls.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, successes)
	assert.Equal(t, successes, stats.StreakMendsUsed)
	assert.Equal(t, 10+successes, stats.TotalRiyaazDays)
	assert.GreaterOrEqual(t, stats.AvailablePoints, 0)
	assert.Equal(t, 20, stats.AvailablePoints)
}
