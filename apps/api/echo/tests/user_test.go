package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/trezcool/mafunzo/apps/api/echo"
	"github.com/trezcool/mafunzo/core/user"
)

func TestUserApi(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "jimmyhendrix", "jimmy@hendrix.cd", "", true) // no role yet
	prof := createProfessor(t, "profplum", "plum@test.cd")
	inactiveUsr := createUser(t, "sleepyjoe", "sleepy@test.cd", user.RoleStudent, false)

	usrToken := getToken(t, usr)
	profToken := getToken(t, prof)

	path := "/api/users"

	t.Run("signup ok", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"first_name":       "Jane",
			"last_name":        "Doe",
			"username":         "janedoe01",
			"email":            "jane@doe.cd",
			"password":         "N0tS0Simpl3!",
			"password_confirm": "N0tS0Simpl3!",
		})
		req, rec := newRequest(http.MethodPost, path+"/signup", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var got user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.ID == 0 {
			t.Error("failed! user ID not set")
		}
		if got.Username != "janedoe01" {
			t.Errorf("failed! username = %v; want janedoe01", got.Username)
		}
		if got.Role != "" {
			t.Errorf("failed! role = %v; want empty", got.Role)
		}
		if !got.IsActive {
			t.Error("failed! user not active")
		}
	})

	signupTests := []httpTest{
		{
			name:     "signup requires all fields",
			body:     marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username":         "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "signup rejects short password",
			body: marchallObj(t, map[string]string{
				"username":         "brandnew",
				"email":            "brand@new.cd",
				"password":         "Sh0rt!",
				"password_confirm": "Sh0rt!",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "signup rejects all-numeric password",
			body: marchallObj(t, map[string]string{
				"username":         "brandnew",
				"email":            "brand@new.cd",
				"password":         "1234567890",
				"password_confirm": "1234567890",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
		{
			name: "signup rejects password similar to username",
			body: marchallObj(t, map[string]string{
				"username":         "johnsmith99",
				"email":            "john@smith.cd",
				"password":         "johnsmith99x",
				"password_confirm": "johnsmith99x",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password cannot be similar to user attributes"}),
		},
		{
			name: "signup rejects password mismatch",
			body: marchallObj(t, map[string]string{
				"username":         "brandnew",
				"email":            "brand@new.cd",
				"password":         "N0tS0Simpl3!",
				"password_confirm": "s0methingEls3!",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password_confirm": "passwords do not match"}),
		},
		{
			name: "signup rejects taken username",
			body: marchallObj(t, map[string]string{
				"username":         "jimmyhendrix",
				"email":            "other@addr.cd",
				"password":         "N0tS0Simpl3!",
				"password_confirm": "N0tS0Simpl3!",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "signup rejects taken email",
			body: marchallObj(t, map[string]string{
				"username":         "othername",
				"email":            "jimmy@hendrix.cd",
				"password":         "N0tS0Simpl3!",
				"password_confirm": "N0tS0Simpl3!",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	for _, tt := range signupTests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path+"/signup", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("me", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/me", usrToken)
		app.ServeHTTP(rec, req)

		fresh, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MeResponse{User: fresh, Role: fresh.Role}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("me requires token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, path+"/me")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("login ok", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"username": "jimmyhendrix", "password": "V3ryS3cr3t!"})
		req, rec := newRequest(http.MethodPost, path+"/login", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("failed! no token returned")
		}

		// lastLogin is touched on successful auth
		fresh, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if fresh.LastLogin.IsZero() {
			t.Error("failed! lastLogin not set")
		}
	})

	t.Run("login by email ok", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"username": "Jimmy@Hendrix.cd", "password": "V3ryS3cr3t!"})
		req, rec := newRequest(http.MethodPost, path+"/login", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	loginTests := []httpTest{
		{
			name:     "login rejects wrong password",
			body:     marchallObj(t, map[string]string{"username": "jimmyhendrix", "password": "wr0ngPassw0rd"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "authentication failed"}),
		},
		{
			name:     "login rejects unknown user",
			body:     marchallObj(t, map[string]string{"username": "nobody404", "password": "V3ryS3cr3t!"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "authentication failed"}),
		},
		{
			name:     "login rejects deactivated account",
			body:     marchallObj(t, map[string]string{"username": "sleepyjoe", "password": "V3ryS3cr3t!"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Message: "account deactivated"}),
		},
		{
			name:     "login requires credentials",
			body:     marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
	}
	for _, tt := range loginTests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path+"/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("token refresh ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path+"/token-refresh", profToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("failed! no token returned")
		}
	})

	t.Run("token refresh rejects deactivated account", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path+"/token-refresh", getToken(t, inactiveUsr))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Message: "account deactivated"})}, rec)
	})

	t.Run("roles list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/roles", usrToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}, rec)
	})

	t.Run("role selection rejects bad role", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"role": "dean"})
		req, rec := newAuthRequest(http.MethodPost, path+"/role", usrToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "must be one of: professor student"}),
		}, rec)
	})

	t.Run("role selection ok", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"role": "student"})
		req, rec := newAuthRequest(http.MethodPost, path+"/role", usrToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp RoleSelectionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Role != user.RoleStudent || resp.User.Role != user.RoleStudent {
			t.Errorf("failed! role = %v; want %v", resp.Role, user.RoleStudent)
		}
		if resp.Token == "" {
			t.Error("failed! no fresh token returned")
		}
	})

	t.Run("role selection is one-shot", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"role": "professor"})
		req, rec := newAuthRequest(http.MethodPost, path+"/role", usrToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role has already been set"}),
		}, rec)
	})
}
