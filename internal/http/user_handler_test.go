package http

import (
	"context"
	"net/http"
	"testing"
)

func TestUserHandlerProfile(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodGet, "/users/profile", nil, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = performRequestWithHeaders(env.router, http.MethodPut, "/users/profile", map[string]any{
		"firstName": "Augusta",
		"userType":  "educator",
		"isAdmin":   true,
		"email":     "hijack@example.com",
		"profile":   map[string]any{"bio": "Analyst", "location": "London"},
	}, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "Profile updated successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	user := body["user"].(map[string]any)
	if user["firstName"] != "Augusta" || user["userType"] != "educator" {
		t.Fatalf("allowed fields not applied: %v", user)
	}
	if user["isAdmin"] != false || user["email"] != "ada@example.com" {
		t.Fatalf("fields outside the allow-list must be ignored: %v", user)
	}
	if user["profile"].(map[string]any)["bio"] != "Analyst" {
		t.Fatalf("profile not updated: %v", user["profile"])
	}
}

func TestUserHandlerProfile_RejectsAdminType(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodPut, "/users/profile", map[string]any{
		"userType": "admin",
	}, bearer(token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestUserHandlerAccessibility(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodPut, "/users/accessibility", map[string]any{
		"fontSize":      "extra-large",
		"reducedMotion": true,
	}, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	settings := decodeBody(t, rec)["accessibilitySettings"].(map[string]any)
	if settings["fontSize"] != "extra-large" || settings["reducedMotion"] != true || settings["dyslexiaFont"] != true {
		t.Fatalf("unexpected settings: %v", settings)
	}

	rec = performRequestWithHeaders(env.router, http.MethodPut, "/users/accessibility", map[string]any{
		"fontSize": "gigantic",
	}, bearer(token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	errs := decodeBody(t, rec)["errors"].([]any)
	if fe := errs[0].(map[string]any); fe["field"] != "fontSize" || fe["message"] != "Invalid font size" {
		t.Fatalf("unexpected field error: %v", fe)
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodPut, "/users/password", map[string]any{
		"currentPassword": "wrong-pass1",
		"newPassword":     "newsecret9",
	}, bearer(token))
	if rec.Code != http.StatusBadRequest || decodeBody(t, rec)["message"] != "Current password is incorrect" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequestWithHeaders(env.router, http.MethodPut, "/users/password", map[string]any{
		"currentPassword": "secret123",
		"newPassword":     "short",
	}, bearer(token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for weak password, got %d", rec.Code)
	}

	rec = performRequestWithHeaders(env.router, http.MethodPut, "/users/password", map[string]any{
		"currentPassword": "secret123",
		"newPassword":     "newsecret9",
	}, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "newsecret9",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d", rec.Code)
	}
}

func TestUserHandlerDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	token, id := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodDelete, "/users/account", nil, bearer(token))
	if rec.Code != http.StatusOK || decodeBody(t, rec)["message"] != "Account deleted successfully" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
	if _, err := env.store.FindByID(context.Background(), id); err == nil {
		t.Fatalf("account still stored")
	}

	rec = performRequestWithHeaders(env.router, http.MethodGet, "/users/profile", nil, bearer(token))
	if rec.Code != http.StatusUnauthorized || decodeBody(t, rec)["code"] != CodeUserNotFound {
		t.Fatalf("token of a deleted account must be rejected: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUserHandlerStats(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodGet, "/users/stats", nil, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	stats := decodeBody(t, rec)["stats"].(map[string]any)
	if stats["emailVerified"] != false || stats["socialAccounts"] != float64(0) || stats["userType"] != "parent" {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestUserHandlerPreferences_OptionalAuth(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")

	rec := performRequest(env.router, http.MethodGet, "/users/preferences", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous request: expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["authenticated"] != false {
		t.Fatalf("anonymous request must not be authenticated")
	}

	rec = performRequestWithHeaders(env.router, http.MethodGet, "/users/preferences", nil, bearer("garbage"))
	if rec.Code != http.StatusOK {
		t.Fatalf("bad token must not be rejected, got %d", rec.Code)
	}

	large := "large"
	rec = performRequestWithHeaders(env.router, http.MethodPut, "/users/accessibility", map[string]any{"fontSize": large}, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("update accessibility: %d", rec.Code)
	}
	rec = performRequestWithHeaders(env.router, http.MethodGet, "/users/preferences", nil, bearer(token))
	body := decodeBody(t, rec)
	if body["authenticated"] != true || body["accessibilitySettings"].(map[string]any)["fontSize"] != large {
		t.Fatalf("unexpected preferences: %v", body)
	}
}

func TestUserHandlerProfile_PartialAccessibility(t *testing.T) {
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "ada@example.com")

	rec := performRequestWithHeaders(env.router, http.MethodPut, "/users/profile", map[string]any{
		"accessibilitySettings": map[string]any{"highContrast": true},
	}, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	settings := decodeBody(t, rec)["user"].(map[string]any)["accessibilitySettings"].(map[string]any)
	if settings["highContrast"] != true || settings["fontSize"] != "medium" || settings["dyslexiaFont"] != true {
		t.Fatalf("unexpected settings: %v", settings)
	}

	rec = performRequestWithHeaders(env.router, http.MethodPut, "/users/profile", map[string]any{
		"accessibilitySettings": map[string]any{"fontSize": "large"},
	}, bearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	settings = decodeBody(t, rec)["user"].(map[string]any)["accessibilitySettings"].(map[string]any)
	if settings["fontSize"] != "large" || settings["highContrast"] != true || settings["dyslexiaFont"] != true {
		t.Fatalf("font size update must keep the other settings: %v", settings)
	}

	rec = performRequestWithHeaders(env.router, http.MethodPut, "/users/profile", map[string]any{
		"accessibilitySettings": map[string]any{"fontSize": "gigantic"},
	}, bearer(token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	errs := decodeBody(t, rec)["errors"].([]any)
	if fe := errs[0].(map[string]any); fe["field"] != "accessibilitySettings.fontSize" {
		t.Fatalf("unexpected field error: %v", fe)
	}
}
