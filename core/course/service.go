package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("course not found")
	ErrCodeExists   = errors.New("a course with this code already exists")
	ErrAccessDenied = errors.New("access to this course is not allowed")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Title, Description or Code.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		UpdateCourse(ctx context.Context, crs Course, isActive *bool) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error
		EnrollStudent(ctx context.Context, courseID, studentID string) error
		UnenrollStudent(ctx context.Context, courseID, studentID string) error
		AddMaterial(ctx context.Context, courseID string, mat Material) (Material, error)
	}

	ServiceInterface interface {
		CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error
		Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetByCode(ctx context.Context, code string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
		Enroll(ctx context.Context, courseID, studentID string) error
		Unenroll(ctx context.Context, courseID, studentID string) error
		AddMaterial(ctx context.Context, courseID string, mat Material) (Material, error)
		// CanAccess returns the course when usr may see it: an enrolled
		// student, the course's teacher, or an admin.
		CanAccess(ctx context.Context, usr user.User, courseID string) (Course, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, exclCourses...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	active := true
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		Code:        nc.Code,
		TeacherID:   teacherID,
		Category:    nc.Category,
		Level:       nc.Level,
		Duration:    nc.Duration,
		IsActive:    &active,
		Schedule:    nc.Schedule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCourses(ctx, filter, ordering...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{Code: core.CleanString(code, true /* lower */)})
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:          id,
		Title:       uc.Title,
		Description: uc.Description,
		Code:        uc.Code,
		Category:    uc.Category,
		Level:       uc.Level,
		Duration:    uc.Duration,
		UpdatedAt:   time.Now().UTC(),
	}
	if uc.Schedule != nil {
		crs.Schedule = *uc.Schedule
	}
	return svc.repo.UpdateCourse(ctx, crs, uc.IsActive)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

func (svc *Service) Enroll(ctx context.Context, courseID, studentID string) error {
	crs, err := svc.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if crs.IsEnrolled(studentID) {
		return nil // already enrolled; no-op
	}
	return svc.repo.EnrollStudent(ctx, courseID, studentID)
}

func (svc *Service) Unenroll(ctx context.Context, courseID, studentID string) error {
	return svc.repo.UnenrollStudent(ctx, courseID, studentID)
}

func (svc *Service) AddMaterial(ctx context.Context, courseID string, mat Material) (Material, error) {
	mat.UploadedAt = time.Now().UTC()
	return svc.repo.AddMaterial(ctx, courseID, mat)
}

func (svc *Service) CanAccess(ctx context.Context, usr user.User, courseID string) (Course, error) {
	crs, err := svc.GetByID(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if usr.IsAdmin() || crs.TeacherID == usr.ID || crs.IsEnrolled(usr.ID) {
		return crs, nil
	}
	return Course{}, ErrAccessDenied
}
