package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Schedule struct {
	DayOfWeek string `json:"day_of_week" validate:"omitempty,oneof=lundi mardi mercredi jeudi vendredi samedi dimanche"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Material is a course document (slide deck, pdf, video, external link).
type Material struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Type       string    `json:"type"` // pdf | video | presentation | document | link
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"` // UTC
}

type Course struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Code        string     `json:"code"`
	TeacherID   string     `json:"teacher_id"`
	StudentIDs  []string   `json:"student_ids"`
	Category    string     `json:"category"`
	Level       string     `json:"level"`
	Duration    int        `json:"duration"` // hours
	IsActive    *bool      `json:"is_active"`
	Schedule    Schedule   `json:"schedule"`
	Materials   []Material `json:"materials"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

func (c *Course) IsEnrolled(userID string) bool {
	for _, id := range c.StudentIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Code        string   `json:"code" validate:"required,alphanum_"`
	Category    string   `json:"category" validate:"required,oneof=informatique mathematiques sciences langues autre"`
	Level       string   `json:"level" validate:"required,oneof=debutant intermediaire avance"`
	Duration    int      `json:"duration" validate:"required,min=1"`
	Schedule    Schedule `json:"schedule"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Code = core.CleanString(nc.Code, true /* lower */)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code" validate:"omitempty,alphanum_"`
	Category    string    `json:"category" validate:"omitempty,oneof=informatique mathematiques sciences langues autre"`
	Level       string    `json:"level" validate:"omitempty,oneof=debutant intermediaire avance"`
	Duration    int       `json:"duration" validate:"omitempty,min=1"`
	IsActive    *bool     `json:"is_active"`
	Schedule    *Schedule `json:"schedule"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, validate *validator.Validate, origCrs Course, svc ServiceInterface) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = origCrs.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = origCrs.Description
	}
	if code := core.CleanString(uc.Code, true /* lower */); code != "" {
		uc.Code = code
	} else {
		uc.Code = origCrs.Code
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, uc.Code, origCrs)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Category  string `query:"category"`
	Level     string `query:"level"`
	IsActive  *bool  `query:"is_active"`
	StudentID string `query:"-"` // set server-side: students only see their courses
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Category == "" && qf.Level == "" && qf.IsActive == nil && qf.StudentID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Level = core.CleanString(qf.Level, true /* lower */)
}

// GetFilter selects a single Course; the first non-empty field wins.
type GetFilter struct {
	ID   string
	Code string
}
