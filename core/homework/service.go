package homework

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadySubmitted   = errors.New("already submitted")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asgmt Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		// QueryAssignments returns the classroom assignments with their SubmissionCount, newest first.
		QueryAssignments(ctx context.Context, classroomID string, exec ...core.DBExecutor) ([]Assignment, error)
		CreateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID string, exec ...core.DBExecutor) (Submission, error)
		// QueryStudentSubmissions returns the student's submissions to the classroom assignments.
		QueryStudentSubmissions(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) ([]Submission, error)
		// QuerySubmissions returns the assignment submissions with Student summaries, newest first.
		QuerySubmissions(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]Submission, error)
	}

	Service interface {
		Create(ctx context.Context, classroomID string, na NewAssignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, classroomID string) ([]Assignment, error)
		// QueryStudentAssignments flags each assignment with the student's own submission.
		QueryStudentAssignments(ctx context.Context, classroomID, studentID string) ([]Assignment, error)
		Submit(ctx context.Context, assignmentID string, student user.User, ns NewSubmission) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		clsRepo classroom.Repository
		mailSvc core.EmailService
	}

	homeworkSubmittedData struct {
		TeacherName     string
		StudentName     string
		AssignmentTitle string
		ClassroomName   string
		RecordingURL    string
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, clsRepo classroom.Repository, mailSvc core.EmailService) Service {
	return &service{db: db, repo: repo, clsRepo: clsRepo, mailSvc: mailSvc}
}

func (svc *service) Create(ctx context.Context, classroomID string, na NewAssignment) (Assignment, error) {
	asgmt := Assignment{
		ID:          uuid.New().String(),
		ClassroomID: classroomID,
		Title:       na.Title,
		Description: na.Description,
		CreatedAt:   user.NowFunc().UTC(),
	}
	if na.DueDate != "" {
		due, err := time.Parse(core.DateLayout, na.DueDate)
		if err != nil {
			return Assignment{}, core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: "due_date must be a valid date (YYYY-MM-DD)"})
		}
		asgmt.DueDate = &due
	}
	return svc.repo.CreateAssignment(ctx, asgmt)
}

func (svc *service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *service) QueryAssignments(ctx context.Context, classroomID string) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, classroomID)
}

func (svc *service) QueryStudentAssignments(ctx context.Context, classroomID, studentID string) ([]Assignment, error) {
	asgmts, err := svc.repo.QueryAssignments(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	subs, err := svc.repo.QueryStudentSubmissions(ctx, classroomID, studentID)
	if err != nil {
		return nil, err
	}

	byAssignment := make(map[string]Submission, len(subs))
	for _, sub := range subs {
		byAssignment[sub.AssignmentID] = sub
	}
	for i := range asgmts {
		sub, ok := byAssignment[asgmts[i].ID]
		submitted := ok
		asgmts[i].Submitted = &submitted
		if ok {
			asgmts[i].Submission = &sub
		}
	}
	return asgmts, nil
}

func (svc *service) Submit(ctx context.Context, assignmentID string, student user.User, ns NewSubmission) (Submission, error) {
	var (
		asgmt Assignment
		sub   Submission
	)
	err := svc.db.WithinTx(ctx, nil, func(tx core.DBExecutor) error {
		var err error
		if asgmt, err = svc.repo.GetAssignment(ctx, assignmentID, tx); err != nil {
			return err
		}
		if _, err = svc.clsRepo.GetEnrollment(ctx, asgmt.ClassroomID, student.ID, tx); err != nil {
			return err
		}

		if _, err = svc.repo.GetSubmission(ctx, assignmentID, student.ID, tx); err == nil {
			return ErrAlreadySubmitted
		} else if err != ErrSubmissionNotFound {
			return err
		}

		sub, err = svc.repo.CreateSubmission(ctx, Submission{
			ID:           uuid.New().String(),
			AssignmentID: assignmentID,
			StudentID:    student.ID,
			RecordingURL: ns.RecordingURL,
			Notes:        ns.Notes,
			SubmittedAt:  user.NowFunc().UTC(),
		}, tx)
		return err
	})
	if err != nil {
		return Submission{}, err
	}

	summary := student.Summary()
	sub.Student = &summary
	svc.notifyTeacher(ctx, asgmt, sub)
	return sub, nil
}

func (svc *service) notifyTeacher(ctx context.Context, asgmt Assignment, sub Submission) {
	cls, err := svc.clsRepo.GetClassroom(ctx, classroom.GetFilter{ID: asgmt.ClassroomID})
	if err != nil || cls.Teacher == nil || cls.Teacher.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cls.Teacher.Name, Address: cls.Teacher.Email}},
		Subject:      "New submission for " + asgmt.Title,
		TemplateName: "homework_submitted",
		TemplateData: homeworkSubmittedData{
			TeacherName:     cls.Teacher.Name,
			StudentName:     sub.Student.Name,
			AssignmentTitle: asgmt.Title,
			ClassroomName:   cls.Name,
			RecordingURL:    sub.RecordingURL,
		},
	})
}

func (svc *service) QuerySubmissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, assignmentID)
}
