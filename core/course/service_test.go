package course

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// memRepo is a minimal in-memory Repository for service tests.
type memRepo struct {
	seq     int
	courses map[string]*Course
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{courses: make(map[string]*Course)}
}

func (r *memRepo) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...Course) error {
outer:
	for _, crs := range r.courses {
		for _, excl := range excludedCourses {
			if excl.ID == crs.ID {
				continue outer
			}
		}
		if crs.Code == code {
			return ErrCodeExists
		}
	}
	return nil
}

func (r *memRepo) CreateCourse(ctx context.Context, crs Course) (Course, error) {
	r.seq++
	crs.ID = strconv.Itoa(r.seq)
	r.courses[crs.ID] = &crs
	return crs, nil
}

func (r *memRepo) QueryCourses(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	var courses []Course
	for _, crs := range r.courses {
		if filter != nil && filter.StudentID != "" && !crs.IsEnrolled(filter.StudentID) {
			continue
		}
		courses = append(courses, *crs)
	}
	return courses, nil
}

func (r *memRepo) GetCourse(ctx context.Context, filter GetFilter) (Course, error) {
	if crs, ok := r.courses[filter.ID]; ok {
		return *crs, nil
	}
	for _, crs := range r.courses {
		if filter.Code != "" && crs.Code == filter.Code {
			return *crs, nil
		}
	}
	return Course{}, ErrNotFound
}

func (r *memRepo) UpdateCourse(ctx context.Context, crs Course, isActive *bool) (Course, error) {
	orig, ok := r.courses[crs.ID]
	if !ok {
		return Course{}, ErrNotFound
	}
	if crs.Title != "" {
		orig.Title = crs.Title
	}
	if crs.Code != "" {
		orig.Code = crs.Code
	}
	if isActive != nil {
		orig.IsActive = isActive
	}
	orig.UpdatedAt = crs.UpdatedAt
	return *orig, nil
}

func (r *memRepo) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		delete(r.courses, id)
	}
	return nil
}

func (r *memRepo) EnrollStudent(ctx context.Context, courseID, studentID string) error {
	crs, ok := r.courses[courseID]
	if !ok {
		return ErrNotFound
	}
	crs.StudentIDs = append(crs.StudentIDs, studentID)
	return nil
}

func (r *memRepo) UnenrollStudent(ctx context.Context, courseID, studentID string) error {
	crs, ok := r.courses[courseID]
	if !ok {
		return ErrNotFound
	}
	for i, id := range crs.StudentIDs {
		if id == studentID {
			crs.StudentIDs = append(crs.StudentIDs[:i], crs.StudentIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memRepo) AddMaterial(ctx context.Context, courseID string, mat Material) (Material, error) {
	crs, ok := r.courses[courseID]
	if !ok {
		return Material{}, ErrNotFound
	}
	crs.Materials = append(crs.Materials, mat)
	return mat, nil
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())

	crs, err := svc.Create(ctx, "t1", NewCourse{
		Title:       "Algorithmique",
		Description: "Bases des algorithmes",
		Code:        "algo101",
		Category:    "informatique",
		Level:       "debutant",
		Duration:    30,
	})
	assert.NoError(t, err)
	assert.Equal(t, "t1", crs.TeacherID)
	assert.NotNil(t, crs.IsActive)
	assert.True(t, *crs.IsActive)
	assert.False(t, crs.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, crs.CreatedAt.Location())

	// duplicate code
	err = svc.CheckCodeUniqueness(ctx, "algo101")
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo)

	crs, err := svc.Create(ctx, "t1", NewCourse{
		Title: "Analyse", Description: "x", Code: "math201",
		Category: "mathematiques", Level: "intermediaire", Duration: 45,
	})
	assert.NoError(t, err)

	assert.NoError(t, svc.Enroll(ctx, crs.ID, "s1"))
	assert.NoError(t, svc.Enroll(ctx, crs.ID, "s1")) // no-op, not duplicated

	got, err := svc.GetByID(ctx, crs.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"s1"}, got.StudentIDs)

	assert.Equal(t, ErrNotFound, svc.Enroll(ctx, "nope", "s1"))
}

func TestService_CanAccess(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo)

	crs, err := svc.Create(ctx, "t1", NewCourse{
		Title: "Chimie", Description: "x", Code: "chem101",
		Category: "sciences", Level: "debutant", Duration: 20,
	})
	assert.NoError(t, err)
	assert.NoError(t, svc.Enroll(ctx, crs.ID, "s1"))

	tests := []struct {
		name    string
		usr     user.User
		wantErr error
	}{
		{name: "enrolled student", usr: user.User{ID: "s1", Role: user.RoleStudent}},
		{name: "owning teacher", usr: user.User{ID: "t1", Role: user.RoleTeacher}},
		{name: "admin", usr: user.User{ID: "a1", Role: user.RoleAdmin}},
		{name: "other student", usr: user.User{ID: "s2", Role: user.RoleStudent}, wantErr: ErrAccessDenied},
		{name: "other teacher", usr: user.User{ID: "t2", Role: user.RoleTeacher}, wantErr: ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanAccess(ctx, tt.usr, crs.ID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, crs.ID, got.ID)
		})
	}

	_, err = svc.CanAccess(ctx, user.User{ID: "a1", Role: user.RoleAdmin}, "nope")
	assert.Equal(t, ErrNotFound, err)
}
