package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

outer:
	for _, crs := range repo.query() {
		for _, excl := range excludedCourses {
			if excl.ID == crs.ID {
				continue outer
			}
		}
		if crs.Code == code {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.query()
	if filter == nil || filter.IsEmpty() {
		return courses, nil
	}

	if filter.StudentID != "" {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.IsEnrolled(filter.StudentID) {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	// courses with search keyword matching any of Title, Description or Code ?
	if courses != nil && filter.Search != "" {
		var filtered []course.Course
		search := strings.ToLower(filter.Search)
		for _, crs := range courses {
			if strings.Contains(strings.ToLower(crs.Title), search) ||
				strings.Contains(strings.ToLower(crs.Description), search) ||
				strings.Contains(strings.ToLower(crs.Code), search) {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Category != "" {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.Category == filter.Category {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Level != "" {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.Level == filter.Level {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.IsActive != nil {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.IsActive != nil && *crs.IsActive == *filter.IsActive {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}

	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if crs, ok := repo.db.table[filter.ID]; ok {
			return *crs, nil
		}
		return course.Course{}, course.ErrNotFound
	}
	if filter.Code != "" {
		for _, crs := range repo.query() {
			if crs.Code == filter.Code {
				return crs, nil
			}
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isActive *bool) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origCrs, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if crs.Title != "" {
		origCrs.Title = crs.Title
	}
	if crs.Description != "" {
		origCrs.Description = crs.Description
	}
	if crs.Code != "" {
		origCrs.Code = crs.Code
	}
	if crs.Category != "" {
		origCrs.Category = crs.Category
	}
	if crs.Level != "" {
		origCrs.Level = crs.Level
	}
	if crs.Duration > 0 {
		origCrs.Duration = crs.Duration
	}
	if crs.Schedule.DayOfWeek != "" {
		origCrs.Schedule.DayOfWeek = crs.Schedule.DayOfWeek
	}
	if crs.Schedule.StartTime != "" {
		origCrs.Schedule.StartTime = crs.Schedule.StartTime
	}
	if crs.Schedule.EndTime != "" {
		origCrs.Schedule.EndTime = crs.Schedule.EndTime
	}
	if isActive != nil {
		origCrs.IsActive = isActive
	}
	origCrs.UpdatedAt = crs.UpdatedAt

	repo.db.table[crs.ID] = origCrs
	return *origCrs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *courseRepository) EnrollStudent(ctx context.Context, courseID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if !crs.IsEnrolled(studentID) {
		crs.StudentIDs = append(crs.StudentIDs, studentID)
	}
	return nil
}

func (repo *courseRepository) UnenrollStudent(ctx context.Context, courseID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	for i, id := range crs.StudentIDs {
		if id == studentID {
			crs.StudentIDs = append(crs.StudentIDs[:i], crs.StudentIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (repo *courseRepository) AddMaterial(ctx context.Context, courseID string, mat course.Material) (course.Material, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.Material{}, course.ErrNotFound
	}
	mat.ID = uuid.New().String()
	crs.Materials = append(crs.Materials, mat)
	return mat, nil
}
