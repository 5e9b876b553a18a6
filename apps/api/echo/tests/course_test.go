package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_courseApi_accessControl(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Prof", "crs-001", "prof@test.cd", "s3cr3t", user.RoleTeacher, true)
	enrolled := testutil.CreateUser(t, usrRepo, "In", "crs-002", "in@test.cd", "s3cr3t", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "Out", "crs-003", "out@test.cd", "s3cr3t", user.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Boss", "crs-004", "boss2@test.cd", "s3cr3t", user.RoleAdmin, true)

	crs := testutil.CreateCourse(t, crsRepo, "Algorithmique", "algo101", teacher.ID, enrolled.ID)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "outsider denied", token: getToken(t, outsider), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "enrolled student allowed", token: getToken(t, enrolled), wantCode: http.StatusOK},
		{name: "teacher allowed", token: getToken(t, teacher), wantCode: http.StatusOK},
		{name: "admin allowed", token: getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID, tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != http.StatusOK {
					t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
				}
				var got course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got.ID != crs.ID {
					t.Errorf("expected course %q, got %s", crs.Code, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/4242", getToken(t, admin))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("students only see their courses", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses", getToken(t, outsider))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var courses []course.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &courses); err != nil {
			t.Fatalf("decoding courses: %v", err)
		}
		for _, c := range courses {
			if c.ID == crs.ID {
				t.Error("outsider must not see the course in listings")
			}
		}
	})
}

func Test_courseApi_enroll(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Prof", "enr-001", "prof2@test.cd", "s3cr3t", user.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Keen", "enr-002", "keen@test.cd", "s3cr3t", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, crsRepo, "Analyse", "math201", teacher.ID)

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}

	refreshed, err := crsRepo.GetCourse(context.Background(), course.GetFilter{ID: crs.ID})
	if err != nil {
		t.Fatalf("GetCourse() failed, %v", err)
	}
	if !refreshed.IsEnrolled(student.ID) {
		t.Error("expected student to be enrolled")
	}

	// enrolling twice is a no-op
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
}

func Test_chatApi_history(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Prof", "hst-001", "prof3@test.cd", "s3cr3t", user.RoleTeacher, true)
	manea := testutil.CreateUser(t, usrRepo, "Manea", "hst-002", "manea2@test.cd", "s3cr3t", user.RoleStudent, true)
	simba := testutil.CreateUser(t, usrRepo, "Simba", "hst-003", "simba@test.cd", "s3cr3t", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, crsRepo, "Chimie", "chem101", teacher.ID, manea.ID, simba.ID)

	now := time.Now().UTC()
	seed := []chat.Message{
		{CourseID: crs.ID, SenderID: manea.ID, Content: "salut à tous", CreatedAt: now},
		{CourseID: crs.ID, SenderID: simba.ID, Content: "salut", CreatedAt: now.Add(time.Second)},
		{CourseID: crs.ID, SenderID: manea.ID, RecipientID: simba.ID, Content: "t'as les notes ?", IsPrivate: true, CreatedAt: now.Add(2 * time.Second)},
	}
	for _, msg := range seed {
		if _, err := msgRepo.SaveMessage(context.Background(), msg); err != nil {
			t.Fatalf("SaveMessage() failed, %v", err)
		}
	}

	t.Run("public history excludes private messages", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/messages", getToken(t, manea))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var msgs []chat.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
			t.Fatalf("decoding messages: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 public messages, got %d", len(msgs))
		}
		// oldest first
		if msgs[0].Content != "salut à tous" || msgs[1].Content != "salut" {
			t.Errorf("unexpected ordering: %s", rec.Body.String())
		}
	})

	t.Run("private history is scoped to the caller", func(t *testing.T) {
		for _, usr := range []user.User{manea, simba} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/messages/private", getToken(t, usr))
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
			}
			var msgs []chat.Message
			if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
				t.Fatalf("decoding messages: %v", err)
			}
			if len(msgs) != 1 || !msgs[0].IsPrivate {
				t.Fatalf("expected the 1 private message, got %s", rec.Body.String())
			}
		}
	})

	t.Run("outsiders get no history", func(t *testing.T) {
		outsider := testutil.CreateUser(t, usrRepo, "Out", "hst-004", "out2@test.cd", "s3cr3t", user.RoleStudent, true)
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/messages", getToken(t, outsider))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})
}
