package classroom

import (
	"context"
	"errors"
	"net/mail"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("classroom not found")
	ErrNotEnrolled       = errors.New("student not enrolled")
	ErrAlreadyEnrolled   = errors.New("already enrolled in this classroom")
	ErrInvalidJoinCode   = errors.New("invalid join code")
	ErrJoinCodeExhausted = errors.New("could not generate a unique join code")
)

type (
	Repository interface {
		JoinCodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error)
		CreateClassroom(ctx context.Context, cls Classroom, exec ...core.DBExecutor) (Classroom, error)
		// GetClassroom returns the classroom with its Teacher summary and StudentCount.
		GetClassroom(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Classroom, error)
		// QueryTeacherClassrooms returns the teacher's classrooms, newest first.
		QueryTeacherClassrooms(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]Classroom, error)
		// QueryStudentClassrooms returns the classrooms a student is enrolled in, latest joined first.
		QueryStudentClassrooms(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]StudentClassroom, error)

		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (Enrollment, error)
		// QueryEnrollments returns the roster with Student summaries, in joining order.
		QueryEnrollments(ctx context.Context, classroomID string, exec ...core.DBExecutor) ([]Enrollment, error)
		DeleteEnrollment(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) (int, error)

		CreateNote(ctx context.Context, note Note, exec ...core.DBExecutor) (Note, error)
		// QueryNotes returns the classroom notes, newest first.
		QueryNotes(ctx context.Context, classroomID string, exec ...core.DBExecutor) ([]Note, error)
	}

	Service interface {
		Create(ctx context.Context, teacher user.User, nc NewClassroom) (Classroom, error)
		QueryTeacherClassrooms(ctx context.Context, teacherID string) ([]Classroom, error)
		QueryStudentClassrooms(ctx context.Context, studentID string) ([]StudentClassroom, error)
		// GetForMember returns the classroom if usr owns it or is enrolled in it, ErrNotFound otherwise.
		GetForMember(ctx context.Context, classroomID string, usr user.User) (Classroom, error)
		// GetOwned returns the classroom if teacherID owns it, ErrNotFound otherwise.
		GetOwned(ctx context.Context, classroomID, teacherID string) (Classroom, error)
		GetByJoinCode(ctx context.Context, code string) (Classroom, error)
		GetEnrollment(ctx context.Context, classroomID, studentID string) (Enrollment, error)
		Join(ctx context.Context, student user.User, code string) (Enrollment, error)
		QueryStudents(ctx context.Context, classroomID string) ([]Enrollment, error)
		RemoveStudent(ctx context.Context, classroomID, studentID string) error
		CreateNote(ctx context.Context, classroomID string, nn NewNote) (Note, error)
		QueryNotes(ctx context.Context, classroomID string) ([]Note, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}

	studentJoinedData struct {
		TeacherName   string
		StudentName   string
		ClassroomName string
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{db: db, repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *service) Create(ctx context.Context, teacher user.User, nc NewClassroom) (Classroom, error) {
	code, err := svc.uniqueJoinCode(ctx)
	if err != nil {
		return Classroom{}, err
	}

	now := user.NowFunc().UTC()
	cls := Classroom{
		ID:          uuid.New().String(),
		Name:        nc.Name,
		Description: nc.Description,
		JoinCode:    code,
		TeacherID:   teacher.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cls, err = svc.repo.CreateClassroom(ctx, cls)
	if err != nil {
		return Classroom{}, err
	}
	summary := teacher.Summary()
	cls.Teacher = &summary
	return cls, nil
}

func (svc *service) uniqueJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code, err := GenerateJoinCode()
		if err != nil {
			return "", pkgerrors.Wrap(err, "generating join code")
		}
		exists, err := svc.repo.JoinCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrJoinCodeExhausted
}

func (svc *service) QueryTeacherClassrooms(ctx context.Context, teacherID string) ([]Classroom, error) {
	return svc.repo.QueryTeacherClassrooms(ctx, teacherID)
}

func (svc *service) QueryStudentClassrooms(ctx context.Context, studentID string) ([]StudentClassroom, error) {
	return svc.repo.QueryStudentClassrooms(ctx, studentID)
}

func (svc *service) GetForMember(ctx context.Context, classroomID string, usr user.User) (Classroom, error) {
	cls, err := svc.repo.GetClassroom(ctx, GetFilter{ID: classroomID})
	if err != nil {
		return Classroom{}, err
	}
	if cls.TeacherID == usr.ID {
		return cls, nil
	}
	if _, err = svc.repo.GetEnrollment(ctx, classroomID, usr.ID); err != nil {
		if err == ErrNotEnrolled {
			return Classroom{}, ErrNotFound
		}
		return Classroom{}, err
	}
	return cls, nil
}

func (svc *service) GetOwned(ctx context.Context, classroomID, teacherID string) (Classroom, error) {
	return svc.repo.GetClassroom(ctx, GetFilter{ID: classroomID, TeacherID: teacherID})
}

func (svc *service) GetByJoinCode(ctx context.Context, code string) (Classroom, error) {
	return svc.repo.GetClassroom(ctx, GetFilter{JoinCode: NormalizeJoinCode(code)})
}

func (svc *service) GetEnrollment(ctx context.Context, classroomID, studentID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, classroomID, studentID)
}

func (svc *service) Join(ctx context.Context, student user.User, code string) (Enrollment, error) {
	var (
		cls Classroom
		enr Enrollment
	)
	err := svc.db.WithinTx(ctx, nil, func(tx core.DBExecutor) error {
		var err error
		cls, err = svc.repo.GetClassroom(ctx, GetFilter{JoinCode: NormalizeJoinCode(code)}, tx)
		if err != nil {
			if err == ErrNotFound {
				return ErrInvalidJoinCode
			}
			return err
		}

		if _, err = svc.repo.GetEnrollment(ctx, cls.ID, student.ID, tx); err == nil {
			return ErrAlreadyEnrolled
		} else if err != ErrNotEnrolled {
			return err
		}

		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			ClassroomID: cls.ID,
			StudentID:   student.ID,
			JoinedAt:    user.NowFunc().UTC(),
		}, tx)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}

	summary := student.Summary()
	enr.Student = &summary
	svc.notifyTeacher(cls, student)
	return enr, nil
}

func (svc *service) notifyTeacher(cls Classroom, student user.User) {
	if cls.Teacher == nil || cls.Teacher.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cls.Teacher.Name, Address: cls.Teacher.Email}},
		Subject:      student.Name + " joined " + cls.Name,
		TemplateName: "student_joined",
		TemplateData: studentJoinedData{
			TeacherName:   cls.Teacher.Name,
			StudentName:   student.Name,
			ClassroomName: cls.Name,
		},
	})
}

func (svc *service) QueryStudents(ctx context.Context, classroomID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, classroomID)
}

func (svc *service) RemoveStudent(ctx context.Context, classroomID, studentID string) error {
	cnt, err := svc.repo.DeleteEnrollment(ctx, classroomID, studentID)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return ErrNotEnrolled
	}
	svc.logger.Info("student removed from classroom", map[string]interface{}{"classroom_id": classroomID, "student_id": studentID})
	return nil
}

func (svc *service) CreateNote(ctx context.Context, classroomID string, nn NewNote) (Note, error) {
	return svc.repo.CreateNote(ctx, Note{
		ID:           uuid.New().String(),
		ClassroomID:  classroomID,
		Title:        nn.Title,
		Content:      nn.Content,
		RecordingURL: nn.RecordingURL,
		CreatedAt:    user.NowFunc().UTC(),
	})
}

func (svc *service) QueryNotes(ctx context.Context, classroomID string) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, classroomID)
}
