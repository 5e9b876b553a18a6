package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_userApi_login(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Manea", "log-001", "manea@test.cd", "s3cr3t", user.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "Gone", "log-002", "gone@test.cd", "s3cr3t", user.RoleStudent, false)

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"matricule": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", body: []byte(`{"matricule": "lol", "password": "lol"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: []byte(`{"matricule": "log-001", "password": "lol"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: []byte(`{"matricule": "log-002", "password": "s3cr3t"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login with matricule", body: []byte(`{"matricule": "log-001", "password": "s3cr3t"}`), wantCode: http.StatusOK},
		{name: "login with email", body: []byte(`{"matricule": "manea@test.cd", "password": "s3cr3t"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != http.StatusOK {
					t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
				}
				var res struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Token == "" {
					t.Errorf("expected a token, got %s", rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// a successful login must record LastLogin
	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	if err != nil {
		t.Fatalf("GetUser() failed, %v", err)
	}
	if refreshed.LastLogin.IsZero() {
		t.Error("expected LastLogin to be set")
	}
}

func Test_userApi_query(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Quinn", "qry-001", "quinn@test.cd", "s3cr3t", user.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Querulous", "qry-002", "boss@test.cd", "s3cr3t", user.RoleAdmin, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("search by matricule", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search=qry-001", getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("decoding users: %v", err)
		}
		if len(users) != 1 || users[0].ID != student.ID {
			t.Errorf("expected only %q, got %s", student.Matricule, rec.Body.String())
		}
	})
}

func Test_userApi_register(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Reg", "reg-001", "reg@test.cd", "s3cr3t", user.RoleAdmin, true)

	body := []byte(`{
		"matricule": "reg-002",
		"first_name": "New",
		"last_name": "Student",
		"email": "new@test.cd",
		"password": "s3cr3t",
		"password_confirm": "s3cr3t"
	}`)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}

	created, err := usrRepo.GetUser(context.Background(), user.GetFilter{Matricule: "reg-002"})
	if err != nil {
		t.Fatalf("GetUser() failed, %v", err)
	}
	if !created.IsStudent() {
		t.Errorf("expected default student role, got %q", created.Role)
	}

	// duplicates are rejected with a field error
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), body)
	app.ServeHTTP(rec, req)
	tt := httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"matricule": user.ErrMatriculeExists.Error()}),
	}
	checkCodeAndData(t, tt, rec)
}
