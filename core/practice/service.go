package practice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
)

type (
	Repository interface {
		// ListPracticeDates returns the date of every practice entry, mends included.
		ListPracticeDates(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) ([]time.Time, error)
		// PracticeEntryExists reports whether an entry is dated within [from, to).
		PracticeEntryExists(ctx context.Context, classroomID, studentID string, from, to time.Time, exec ...core.DBExecutor) (bool, error)
		InsertPracticeEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		QueryPracticeEntries(ctx context.Context, classroomID, studentID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Entry, error)
		CountHomeworkSubmissions(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (int, error)
		GetEnrollment(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (classroom.Enrollment, error)
		// IncrementMendCount increments the mend counter only if it still equals expected,
		// and returns the number of rows affected.
		IncrementMendCount(ctx context.Context, classroomID, studentID string, expected int, exec ...core.DBExecutor) (int, error)
		QueryRecentEntries(ctx context.Context, classroomID string, limit int, exec ...core.DBExecutor) ([]RecentEntry, error)
		QueryRecentSubmissions(ctx context.Context, classroomID string, limit int, exec ...core.DBExecutor) ([]RecentSubmission, error)
	}

	Service interface {
		LogPractice(ctx context.Context, classroomID, studentID string, ne NewEntry) (Entry, error)
		QueryEntries(ctx context.Context, classroomID, studentID string, ordering []core.DBOrdering) ([]Entry, error)
		Stats(ctx context.Context, classroomID, studentID string) (Stats, error)
		Leaderboard(ctx context.Context, classroomID string) ([]LeaderboardEntry, error)
		MendStreak(ctx context.Context, classroomID, studentID string, missedDate time.Time) (MendResult, error)
		RecentActivity(ctx context.Context, classroomID string) ([]Activity, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		clsRepo classroom.Repository
		conf    *core.Config
		logger  core.Logger
		now     func() time.Time
	}
)

var (
	_ Service = (*service)(nil)

	defaultOrdering = []core.DBOrdering{{Field: "date"}, {Field: "created_at"}}

	// OrderingFields lists the fields practice entries can be ordered by.
	OrderingFields = []string{"date", "created_at", "duration_minutes"}
)

// NewService returns the practice Service; now defaults to time.Now.
func NewService(db core.DB, repo Repository, clsRepo classroom.Repository, conf *core.Config, logger core.Logger, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{db: db, repo: repo, clsRepo: clsRepo, conf: conf, logger: logger, now: now}
}

// today returns the current calendar day in the configured location.
func (svc *service) today() time.Time {
	return Day(svc.now(), svc.conf.Location)
}

func (svc *service) LogPractice(ctx context.Context, classroomID, studentID string, ne NewEntry) (Entry, error) {
	if _, err := svc.repo.GetEnrollment(ctx, classroomID, studentID); err != nil {
		return Entry{}, err
	}

	day, err := ParseDay(ne.Date)
	if err != nil {
		return Entry{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be a valid date (YYYY-MM-DD)"})
	}
	if day.After(svc.today()) {
		return Entry{}, ErrFutureDate
	}

	return svc.repo.InsertPracticeEntry(ctx, Entry{
		ID:              uuid.New().String(),
		ClassroomID:     classroomID,
		StudentID:       studentID,
		Date:            day,
		DurationMinutes: ne.DurationMinutes,
		Tag:             ne.Tag,
		RecordingURL:    ne.RecordingURL,
		Notes:           ne.Notes,
		CreatedAt:       svc.now().UTC(),
	})
}

func (svc *service) QueryEntries(ctx context.Context, classroomID, studentID string, ordering []core.DBOrdering) ([]Entry, error) {
	if _, err := svc.repo.GetEnrollment(ctx, classroomID, studentID); err != nil {
		return nil, err
	}
	if len(ordering) == 0 {
		ordering = defaultOrdering
	}
	return svc.repo.QueryPracticeEntries(ctx, classroomID, studentID, ordering)
}

func (svc *service) Stats(ctx context.Context, classroomID, studentID string) (Stats, error) {
	enr, err := svc.repo.GetEnrollment(ctx, classroomID, studentID)
	if err != nil {
		return Stats{}, err
	}
	dates, err := svc.repo.ListPracticeDates(ctx, classroomID, studentID)
	if err != nil {
		return Stats{}, err
	}
	submissions, err := svc.repo.CountHomeworkSubmissions(ctx, classroomID, studentID)
	if err != nil {
		return Stats{}, err
	}

	streaks := CalculateStreaks(dates, svc.today())
	total := CalculatePoints(len(dates), submissions)
	return Stats{
		CurrentStreak:            streaks.Current,
		LongestStreak:            streaks.Longest,
		TotalPoints:              total,
		AvailablePoints:          AvailablePoints(total, enr.StreakMendsUsed),
		StreakMendsUsed:          enr.StreakMendsUsed,
		LastPracticedDate:        lastDay(dates),
		TotalRiyaazDays:          countDays(dates),
		TotalHomeworkSubmissions: submissions,
	}, nil
}

func (svc *service) Leaderboard(ctx context.Context, classroomID string) ([]LeaderboardEntry, error) {
	roster, err := svc.clsRepo.QueryEnrollments(ctx, classroomID)
	if err != nil {
		return nil, err
	}

	today := svc.today()
	board := make([]LeaderboardEntry, 0, len(roster))
	for _, enr := range roster {
		dates, err := svc.repo.ListPracticeDates(ctx, classroomID, enr.StudentID)
		if err != nil {
			return nil, err
		}
		submissions, err := svc.repo.CountHomeworkSubmissions(ctx, classroomID, enr.StudentID)
		if err != nil {
			return nil, err
		}

		streaks := CalculateStreaks(dates, today)
		total := CalculatePoints(len(dates), submissions)
		row := LeaderboardEntry{
			StudentID:         enr.StudentID,
			CurrentStreak:     streaks.Current,
			LongestStreak:     streaks.Longest,
			TotalPoints:       total,
			AvailablePoints:   AvailablePoints(total, enr.StreakMendsUsed),
			LastPracticedDate: lastDay(dates),
			joinedAt:          enr.JoinedAt,
		}
		if enr.Student != nil {
			row.StudentName = enr.Student.Name
		}
		board = append(board, row)
	}

	SortLeaderboard(board)
	return board, nil
}

// SortLeaderboard orders by points, then current streak, both descending,
// then by student name, joining time and student id.
func SortLeaderboard(board []LeaderboardEntry) {
	sort.SliceStable(board, func(i, j int) bool {
		a, b := board[i], board[j]
		switch {
		case a.TotalPoints != b.TotalPoints:
			return a.TotalPoints > b.TotalPoints
		case a.CurrentStreak != b.CurrentStreak:
			return a.CurrentStreak > b.CurrentStreak
		case a.StudentName != b.StudentName:
			return a.StudentName < b.StudentName
		case !a.joinedAt.Equal(b.joinedAt):
			return a.joinedAt.Before(b.joinedAt)
		default:
			return a.StudentID < b.StudentID
		}
	})
}

func (svc *service) MendStreak(ctx context.Context, classroomID, studentID string, missedDate time.Time) (MendResult, error) {
	day := calendarDay(missedDate)
	attempts := svc.conf.Practice.MendMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := svc.mendOnce(ctx, classroomID, studentID, day)
		if !errors.Is(err, errMendRace) {
			return res, err
		}
		svc.logger.Warn(fmt.Sprintf("streak mend attempt %d/%d lost a race", attempt, attempts),
			map[string]interface{}{"classroom_id": classroomID, "student_id": studentID})
	}
	return MendResult{}, ErrMendConflict
}

// mendOnce runs every mend check and the write in a single transaction.
// It returns errMendRace if another mend committed after the counter was read.
func (svc *service) mendOnce(ctx context.Context, classroomID, studentID string, day time.Time) (MendResult, error) {
	var res MendResult
	err := svc.db.WithinTx(ctx, nil, func(tx core.DBExecutor) error {
		enr, err := svc.repo.GetEnrollment(ctx, classroomID, studentID, tx)
		if err != nil {
			if errors.Is(err, classroom.ErrNotEnrolled) {
				return ErrNotEnrolled
			}
			return err
		}

		dates, err := svc.repo.ListPracticeDates(ctx, classroomID, studentID, tx)
		if err != nil {
			return err
		}
		submissions, err := svc.repo.CountHomeworkSubmissions(ctx, classroomID, studentID, tx)
		if err != nil {
			return err
		}
		available := AvailablePoints(CalculatePoints(len(dates), submissions), enr.StreakMendsUsed)
		if available < MendCost {
			return insufficientPointsError(available)
		}

		exists, err := svc.repo.PracticeEntryExists(ctx, classroomID, studentID, day, day.AddDate(0, 0, 1), tx)
		if err != nil {
			return err
		}
		if exists {
			return ErrDateAlreadyLogged
		}

		if !day.Before(svc.today()) {
			return ErrInvalidMendDate
		}

		_, err = svc.repo.InsertPracticeEntry(ctx, Entry{
			ID:              uuid.New().String(),
			ClassroomID:     classroomID,
			StudentID:       studentID,
			Date:            day,
			DurationMinutes: 0,
			Tag:             MendTag,
			Notes:           mendNotes,
			CreatedAt:       svc.now().UTC(),
		}, tx)
		if err != nil {
			return err
		}

		updated, err := svc.repo.IncrementMendCount(ctx, classroomID, studentID, enr.StreakMendsUsed, tx)
		if err != nil {
			return err
		}
		if updated == 0 {
			return errMendRace
		}

		res = MendResult{
			Message:         "Streak mended successfully",
			PointsSpent:     MendCost,
			RemainingPoints: available - MendCost,
			StreakMendsUsed: enr.StreakMendsUsed + 1,
		}
		return nil
	})
	return res, err
}

func (svc *service) RecentActivity(ctx context.Context, classroomID string) ([]Activity, error) {
	entries, err := svc.repo.QueryRecentEntries(ctx, classroomID, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	submissions, err := svc.repo.QueryRecentSubmissions(ctx, classroomID, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(entries)+len(submissions))
	for _, e := range entries {
		activities = append(activities, Activity{
			Type:        ActivityRiyaaz,
			StudentName: e.StudentName,
			Details:     fmt.Sprintf("%s, %d min", e.Tag, e.DurationMinutes),
			Date:        e.Date,
			Timestamp:   e.CreatedAt,
		})
	}
	for _, s := range submissions {
		activities = append(activities, Activity{
			Type:        ActivityHomework,
			StudentName: s.StudentName,
			Details:     s.AssignmentTitle,
			Date:        s.SubmittedAt,
			Timestamp:   s.SubmittedAt,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool { return activities[i].Timestamp.After(activities[j].Timestamp) })
	if len(activities) > recentActivityLimit {
		activities = activities[:recentActivityLimit]
	}
	return activities, nil
}

func lastDay(dates []time.Time) *time.Time {
	var last time.Time
	for _, d := range dates {
		if day := calendarDay(d); day.After(last) {
			last = day
		}
	}
	if last.IsZero() {
		return nil
	}
	return &last
}

func countDays(dates []time.Time) int {
	days := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		days[calendarDay(d)] = struct{}{}
	}
	return len(days)
}
