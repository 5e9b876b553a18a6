package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type dbCourse struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	Code        string      `db:"code"`
	TeacherID   null.String `db:"teacher_id"`
	Category    null.String `db:"category"`
	Level       null.String `db:"level"`
	Duration    null.Int    `db:"duration"`
	IsActive    null.Bool   `db:"is_active"`
	DayOfWeek   null.String `db:"day_of_week"`
	StartTime   null.String `db:"start_time"`
	EndTime     null.String `db:"end_time"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (c dbCourse) unpack() course.Course {
	return course.Course{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description.String,
		Code:        c.Code,
		TeacherID:   c.TeacherID.String,
		Category:    c.Category.String,
		Level:       c.Level.String,
		Duration:    c.Duration.Int,
		IsActive:    c.IsActive.Ptr(),
		Schedule: course.Schedule{
			DayOfWeek: c.DayOfWeek.String,
			StartTime: c.StartTime.String,
			EndTime:   c.EndTime.String,
		},
		CreatedAt: c.CreatedAt.Time,
		UpdatedAt: c.UpdatedAt.Time,
	}
}

type dbMaterial struct {
	ID         string      `db:"id"`
	CourseID   string      `db:"course_id"`
	Title      null.String `db:"title"`
	Type       null.String `db:"type"`
	URL        null.String `db:"url"`
	UploadedAt null.Time   `db:"uploaded_at"`
}

func (m dbMaterial) unpack() course.Material {
	return course.Material{
		ID:         m.ID,
		Title:      m.Title.String,
		Type:       m.Type.String,
		URL:        m.URL.String,
		UploadedAt: m.UploadedAt.Time,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// loadRelations fills StudentIDs and Materials for crs in place.
func (repo courseRepository) loadRelations(ctx context.Context, crs *course.Course) error {
	if err := repo.db.SelectContext(ctx, &crs.StudentIDs,
		`SELECT student_id FROM course_student WHERE course_id = $1`, crs.ID); err != nil {
		return errors.Wrap(err, "loading course students")
	}
	var mats []dbMaterial
	if err := repo.db.SelectContext(ctx, &mats,
		`SELECT * FROM material WHERE course_id = $1 ORDER BY uploaded_at`, crs.ID); err != nil {
		return errors.Wrap(err, "loading course materials")
	}
	crs.Materials = make([]course.Material, 0, len(mats))
	for _, mat := range mats {
		crs.Materials = append(crs.Materials, mat.unpack())
	}
	return nil
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	q := `SELECT COUNT(*) FROM course WHERE code = ?`
	args := []interface{}{code}
	if len(excludedCourses) > 0 {
		ids := make([]string, 0, len(excludedCourses))
		for _, crs := range excludedCourses {
			ids = append(ids, crs.ID)
		}
		inQ, inArgs, err := sqlx.In(`id NOT IN (?)`, ids)
		if err != nil {
			return errors.Wrap(err, "checking course code uniqueness")
		}
		q += " AND " + inQ
		args = append(args, inArgs...)
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if count > 0 {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO course (id, title, description, code, teacher_id, category, level, duration, is_active,
		                     day_of_week, start_time, end_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		crs.ID, crs.Title, crs.Description, crs.Code, null.NewString(crs.TeacherID, crs.TeacherID != ""),
		crs.Category, crs.Level, crs.Duration, null.BoolFromPtr(crs.IsActive),
		crs.Schedule.DayOfWeek, crs.Schedule.StartTime, crs.Schedule.EndTime,
		crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	q := `SELECT DISTINCT c.* FROM course c`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.StudentID != "" {
			q += ` JOIN course_student cs ON cs.course_id = c.id`
			conds = append(conds, `cs.student_id = ?`)
			args = append(args, filter.StudentID)
		}
		if filter.Search != "" {
			conds = append(conds, `(c.title ILIKE ? OR c.description ILIKE ? OR c.code ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val)
		}
		if filter.Category != "" {
			conds = append(conds, `c.category = ?`)
			args = append(args, filter.Category)
		}
		if filter.Level != "" {
			conds = append(conds, `c.level = ?`)
			args = append(args, filter.Level)
		}
		if filter.IsActive != nil {
			conds = append(conds, `c.is_active = ?`)
			args = append(args, *filter.IsActive)
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []dbCourse
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		crs := row.unpack()
		if err := repo.loadRelations(ctx, &crs); err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	var cond string
	var arg interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return course.Course{}, course.ErrNotFound
		}
		cond, arg = `id = $1`, filter.ID
	case filter.Code != "":
		cond, arg = `code = $1`, filter.Code
	default:
		return course.Course{}, course.ErrNotFound
	}

	var row dbCourse
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE `+cond, arg); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course")
	}
	crs := row.unpack()
	if err := repo.loadRelations(ctx, &crs); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isActive *bool) (course.Course, error) {
	sets := []string{`updated_at = ?`}
	args := []interface{}{crs.UpdatedAt.UTC()}

	set := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = ?", col))
		args = append(args, val)
	}
	if crs.Title != "" {
		set("title", crs.Title)
	}
	if crs.Description != "" {
		set("description", crs.Description)
	}
	if crs.Code != "" {
		set("code", crs.Code)
	}
	if crs.Category != "" {
		set("category", crs.Category)
	}
	if crs.Level != "" {
		set("level", crs.Level)
	}
	if crs.Duration > 0 {
		set("duration", crs.Duration)
	}
	if crs.Schedule.DayOfWeek != "" {
		set("day_of_week", crs.Schedule.DayOfWeek)
	}
	if crs.Schedule.StartTime != "" {
		set("start_time", crs.Schedule.StartTime)
	}
	if crs.Schedule.EndTime != "" {
		set("end_time", crs.Schedule.EndTime)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	args = append(args, crs.ID)

	q := repo.db.Rebind(`UPDATE course SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, course.GetFilter{ID: crs.ID})
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM course WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

func (repo courseRepository) EnrollStudent(ctx context.Context, courseID, studentID string) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO course_student (course_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		courseID, studentID,
	)
	return errors.Wrap(err, "enrolling student")
}

func (repo courseRepository) UnenrollStudent(ctx context.Context, courseID, studentID string) error {
	_, err := repo.db.ExecContext(ctx,
		`DELETE FROM course_student WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID,
	)
	return errors.Wrap(err, "unenrolling student")
}

func (repo courseRepository) AddMaterial(ctx context.Context, courseID string, mat course.Material) (course.Material, error) {
	mat.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO material (id, course_id, title, type, url, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		mat.ID, courseID, mat.Title, mat.Type, mat.URL, mat.UploadedAt.UTC(),
	)
	if err != nil {
		return course.Material{}, errors.Wrap(err, "inserting material")
	}
	return mat, nil
}
