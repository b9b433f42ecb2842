package server

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"quill/internal/cache"
	"quill/internal/database"
	"quill/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestSignup_CreatesUserAndLogsIn(t *testing.T) {
	_, app, db := setupTestServer(t)

	resp := doForm(t, app, "/auth/signup/", "", url.Values{
		"username": {"newcomer"},
		"email":    {"newcomer@example.com"},
		"password": {"password123"},
	})
	wantRedirect(t, resp, "/")

	cookieSet := false
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Fatal("expected session cookie after signup")
	}

	var user models.User
	if err := db.Where("username = ?", "newcomer").First(&user).Error; err != nil {
		t.Fatalf("signed-up user missing: %v", err)
	}
	if user.Password == "password123" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestSignup_FieldErrors(t *testing.T) {
	_, app, _ := setupTestServer(t)

	resp := doForm(t, app, "/auth/signup/", "", url.Values{
		"username": {"ab"},
		"email":    {"not-an-email"},
		"password": {"short"},
	})
	wantStatus(t, resp, http.StatusBadRequest)
	payload := decodeBody(t, resp)

	fields, ok := payload["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected field errors, got %v", payload)
	}
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := fields[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, fields)
		}
	}
}

func TestLogin(t *testing.T) {
	_, app, db := setupTestServer(t)
	mustCreateUser(t, db, "resident")

	t.Run("wrong password", func(t *testing.T) {
		resp := doForm(t, app, "/auth/login/", "", url.Values{
			"username": {"resident"},
			"password": {"wrong"},
		})
		wantStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := doForm(t, app, "/auth/login/", "", url.Values{
			"username": {"ghost"},
			"password": {"password123"},
		})
		wantStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("success returns to next", func(t *testing.T) {
		resp := doForm(t, app, "/auth/login/?next=%2Fcreate%2F", "", url.Values{
			"username": {"resident"},
			"password": {"password123"},
		})
		wantRedirect(t, resp, "/create/")
	})

	t.Run("offsite next falls back to index", func(t *testing.T) {
		resp := doForm(t, app, "/auth/login/", "", url.Values{
			"username": {"resident"},
			"password": {"password123"},
			"next":     {"//evil.example.com/"},
		})
		wantRedirect(t, resp, "/")
	})
}

// A login primes the user cache; the next login is served from the
// cached copy and must still verify the password.
func TestLogin_RepeatedLoginsWithWarmCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	_, app, db := setupTestServer(t)
	mustCreateUser(t, db, "regular")

	creds := url.Values{
		"username": {"regular"},
		"password": {"password123"},
	}

	resp := doForm(t, app, "/auth/login/", "", creds)
	wantRedirect(t, resp, "/")

	resp = doForm(t, app, "/auth/login/", "", creds)
	wantRedirect(t, resp, "/")

	// The wrong password still fails on a cache hit.
	resp = doForm(t, app, "/auth/login/", "", url.Values{
		"username": {"regular"},
		"password": {"wrong"},
	})
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestLogout_RevokesSession(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	s, err := NewServerWithDeps(testConfig(t), db, redisClient)
	if err != nil {
		t.Fatalf("NewServerWithDeps: %v", err)
	}
	app := fiberAppFor(s)

	user := mustCreateUser(t, db, "leaver")
	cookie := sessionFor(t, s, user)

	// The session works before logout.
	resp := doGet(t, app, "/create/", cookie)
	wantStatus(t, resp, http.StatusOK)

	resp = doGet(t, app, "/auth/logout/", cookie)
	wantRedirect(t, resp, "/")

	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}

	// The revoked token no longer authenticates even if replayed.
	resp = doGet(t, app, "/create/", cookie)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected revoked session to redirect to login, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/auth/login/") {
		t.Fatalf("expected login redirect, got %q", loc)
	}
}

func fiberAppFor(s *Server) *fiber.App {
	app := fiber.New()
	s.SetupRoutes(app)
	return app
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/posts/1/", "/posts/1/"},
		{"//evil.example.com/", "/"},
		{"https://evil.example.com/", "/"},
		{"/", "/"},
	}
	for _, tt := range tests {
		if got := safeNext(tt.in); got != tt.want {
			t.Fatalf("safeNext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
