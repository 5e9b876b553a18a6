package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

// CreateUser persists a user through the repository, failing the test on error.
func CreateUser(t *testing.T, repo user.Repository, firstName, matricule, email, pwd, role string, isActive bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Matricule: matricule,
		FirstName: firstName,
		Email:     email,
		Role:      role,
		IsActive:  &isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}

	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

// CreateCourse persists a course through the repository, failing the test on error.
func CreateCourse(t *testing.T, repo course.Repository, title, code, teacherID string, studentIDs ...string) course.Course {
	t.Helper()

	now := time.Now().UTC()
	active := true
	crs := course.Course{
		Title:     title,
		Code:      code,
		TeacherID: teacherID,
		Category:  "informatique",
		Level:     "debutant",
		Duration:  30,
		IsActive:  &active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed, %v", err)
	}
	for _, sid := range studentIDs {
		if err := repo.EnrollStudent(context.Background(), crs.ID, sid); err != nil {
			t.Fatalf("EnrollStudent() failed, %v", err)
		}
		crs.StudentIDs = append(crs.StudentIDs, sid)
	}
	return crs
}
