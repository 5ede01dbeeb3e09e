package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lexia-auth/internal/service"
)

func TestAuthHandlerRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/register", registerBody("ada@example.com"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "User registered successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	user := body["user"].(map[string]any)
	for _, hidden := range []string{"password", "emailVerificationToken", "loginAttempts", "lockUntil"} {
		if _, ok := user[hidden]; ok {
			t.Fatalf("public view leaked %q: %v", hidden, user)
		}
	}
	if user["fullName"] != "Ada Lovelace" || user["isEmailVerified"] != false {
		t.Fatalf("unexpected user view: %v", user)
	}
	if len(env.sender.links) != 1 || !strings.HasPrefix(env.sender.links[0], "http://frontend.test/verify-email?token=") {
		t.Fatalf("expected verification link, got %v", env.sender.links)
	}

	claims, err := env.jwt.Verify(body["token"].(string))
	if err != nil || claims.UserID != user["id"] {
		t.Fatalf("token does not identify the new user: %+v %v", claims, err)
	}
}

func TestAuthHandlerRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "ada@example.com")

	rec := performRequest(env.router, http.MethodPost, "/auth/register", registerBody("ada@example.com"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "User already exists with this email" {
		t.Fatalf("unexpected message: %v", msg)
	}
}

func TestAuthHandlerRegister_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	body := registerBody("not-an-email")
	body["password"] = "letters-only"
	body["userType"] = "admin"

	rec := performRequest(env.router, http.MethodPost, "/auth/register", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	resp := decodeBody(t, rec)
	if resp["message"] != "Validation failed" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	fields := map[string]string{}
	for _, raw := range resp["errors"].([]any) {
		fe := raw.(map[string]any)
		fields[fe["field"].(string)] = fe["message"].(string)
	}
	if fields["email"] != "Please provide a valid email" {
		t.Fatalf("missing email error: %v", fields)
	}
	if fields["password"] != "Password must contain both letters and numbers" {
		t.Fatalf("missing password error: %v", fields)
	}
	if fields["userType"] != "Please select a valid user type" {
		t.Fatalf("missing userType error: %v", fields)
	}
}

func TestAuthHandlerRegister_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	rec := performRequest(env.router, http.MethodPost, "/auth/register", "just a string")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "ada@example.com")

	rec := performRequest(env.router, http.MethodPost, "/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong-pass1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Invalid email or password" {
		t.Fatalf("unexpected message: %v", msg)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "secret123",
	})
	if msg := decodeBody(t, rec)["message"]; rec.Code != http.StatusUnauthorized || msg != "Invalid email or password" {
		t.Fatalf("unknown email must look like a bad password: %d %v", rec.Code, msg)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "secret123",
		"remember": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "Login successful" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	expiresAt, err := time.Parse(time.RFC3339, body["expiresAt"].(string))
	if err != nil {
		t.Fatalf("parse expiresAt: %v", err)
	}
	if time.Until(expiresAt) < 29*24*time.Hour {
		t.Fatalf("remember login must last 30 days, expires %v", expiresAt)
	}
}

func TestAuthHandlerLogin_LocksAfterFiveFailures(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "ada@example.com")
	wrong := map[string]any{"email": "ada@example.com", "password": "wrong-pass1"}

	for i := 1; i <= 4; i++ {
		rec := performRequest(env.router, http.MethodPost, "/auth/login", wrong)
		if rec.Code != http.StatusUnauthorized || decodeBody(t, rec)["code"] != CodeInvalidCredentials {
			t.Fatalf("attempt %d: unexpected response %d %s", i, rec.Code, rec.Body.String())
		}
	}
	rec := performRequest(env.router, http.MethodPost, "/auth/login", wrong)
	if rec.Code != http.StatusUnauthorized || decodeBody(t, rec)["code"] != CodeAccountLocked {
		t.Fatalf("fifth failure must lock: %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusUnauthorized || decodeBody(t, rec)["code"] != CodeAccountLocked {
		t.Fatalf("correct password while locked: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerMe(t *testing.T) {
	env := newTestEnv(t)
	token, id := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodGet, "/auth/me", nil, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	user := decodeBody(t, rec)["user"].(map[string]any)
	if user["id"] != id {
		t.Fatalf("unexpected user: %v", user)
	}

	rec = performRequestWithHeaders(env.router, http.MethodPost, "/auth/logout", nil, bearer(token))
	if rec.Code != http.StatusOK || decodeBody(t, rec)["message"] != "Logout successful" {
		t.Fatalf("unexpected logout response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerMe_TokenFailures(t *testing.T) {
	env := newTestEnv(t)
	_, id := registerUser(t, env, "ada@example.com")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		UserID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ghostToken, _, err := env.jwt.Issue("ghost", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name    string
		headers map[string]string
		code    string
	}{
		{"missing", nil, CodeAuthRequired},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}, CodeAuthRequired},
		{"garbage", bearer("nope"), CodeInvalidToken},
		{"expired", bearer(expiredToken), CodeTokenExpired},
		{"unknown user", bearer(ghostToken), CodeUserNotFound},
	}
	for _, tc := range cases {
		rec := performRequestWithHeaders(env.router, http.MethodGet, "/auth/me", nil, tc.headers)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
		if got := decodeBody(t, rec)["code"]; got != tc.code {
			t.Fatalf("%s: expected code %s, got %v", tc.name, tc.code, got)
		}
	}
}

func TestAuthHandlerVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")
	verification := strings.TrimPrefix(env.sender.links[0], "http://frontend.test/verify-email?token=")

	rec := performRequest(env.router, http.MethodPost, "/auth/verify-email", map[string]string{"token": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/verify-email", map[string]string{"token": verification})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if user := decodeBody(t, rec)["user"].(map[string]any); user["isEmailVerified"] != true {
		t.Fatalf("expected verified user: %v", user)
	}

	rec = performRequestWithHeaders(env.router, http.MethodPost, "/auth/resend-verification", nil, bearer(token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("resend on verified account: expected 400, got %d", rec.Code)
	}
}
