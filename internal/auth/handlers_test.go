package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readingroom/internal/database/users"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAuditor) LogAuth(userID *uint, action, name, ipAddr string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "failed"
	}
	a.events = append(a.events, "auth:"+action+":"+name+":"+status)
}

func (a *recordingAuditor) LogAdmin(action, ipAddr string, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	status := "ok"
	if !success {
		status = "failed"
	}
	a.events = append(a.events, "admin:"+action+":"+status)
}

// testClient keeps cookies between requests against a gin engine.
type testClient struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func (tc *testClient) do(method, path string, form url.Values, jsonClient bool) *httptest.ResponseRecorder {
	tc.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if jsonClient {
		req.Header.Set("Accept", "application/json")
	}
	for _, c := range tc.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(tc.cookies, c.Name)
			continue
		}
		tc.cookies[c.Name] = c
	}
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func setupTestRouter(t *testing.T) (*testClient, *recordingAuditor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	cfg := testAuthConfig()
	sessions := NewSessionManager(sqlDB, cfg)
	service := NewService(users.NewRepository(db.DB), cfg)
	mw := NewMiddleware(service, sessions)
	auditor := &recordingAuditor{}
	controller := NewAuthController(service, sessions, NewAdminGate("s3cret"), "", cfg, WithAuditor(auditor))

	router := gin.New()
	router.Use(sessions.SessionLoadSave())
	router.Use(mw.Handler())
	controller.RegisterRoutes(router)

	router.GET("/whoami", mw.RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "name": GetUsername(c)})
	})
	router.GET("/admin/books", mw.RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin": true})
	})

	return &testClient{t: t, router: router, cookies: map[string]*http.Cookie{}}, auditor
}

func registerForm(name, age, password string) url.Values {
	return url.Values{"name": {name}, "age": {age}, "password": {password}}
}

func loginForm(name, password string) url.Values {
	return url.Values{"name": {name}, "password": {password}}
}

func TestRegister_JSON(t *testing.T) {
	client, _ := setupTestRouter(t)

	w := client.do(http.MethodPost, "/register", registerForm("ana", "9", "p1"), true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "ana", body["name"])
	assert.Equal(t, float64(9), body["age"])
	assert.NotContains(t, body, "password_hash")

	w = client.do(http.MethodPost, "/register", registerForm("ana", "10", "p2"), true)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = client.do(http.MethodPost, "/register", registerForm("bob", "nine", "p1"), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Age must be a number.", decodeBody(t, w)["error"])
}

func TestRegister_BrowserFlashesAndRedirects(t *testing.T) {
	client, _ := setupTestRouter(t)

	w := client.do(http.MethodPost, "/register", registerForm("ana", "9", "p1"), false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = client.do(http.MethodGet, "/login", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Registration successful. Please log in.", decodeBody(t, w)["Flash"])

	// Flash is shown once
	w = client.do(http.MethodGet, "/login", nil, false)
	assert.Equal(t, "", decodeBody(t, w)["Flash"])

	w = client.do(http.MethodPost, "/register", registerForm("", "9", "p1"), false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/register", w.Header().Get("Location"))
	w = client.do(http.MethodGet, "/register", nil, false)
	assert.Equal(t, "Please fill out all required fields.", decodeBody(t, w)["Flash"])
}

func TestLogin_SessionGrantsAccess(t *testing.T) {
	client, auditor := setupTestRouter(t)

	w := client.do(http.MethodGet, "/whoami", nil, true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	client.do(http.MethodPost, "/register", registerForm("ana", "9", "p1"), true)
	w = client.do(http.MethodPost, "/login", loginForm("ana", "p1"), true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = client.do(http.MethodGet, "/whoami", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", decodeBody(t, w)["name"])

	w = client.do(http.MethodGet, "/logout", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = client.do(http.MethodGet, "/whoami", nil, true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, []string{"auth:register:ana:ok", "auth:login:ana:ok", "auth:logout:ana:ok"}, auditor.events)
}

func TestLogin_Failures(t *testing.T) {
	client, _ := setupTestRouter(t)
	client.do(http.MethodPost, "/register", registerForm("ana", "9", "p1"), true)

	w := client.do(http.MethodPost, "/login", loginForm("ana", "nope"), true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid name or password.", decodeBody(t, w)["error"])

	w = client.do(http.MethodPost, "/login", loginForm("bob", "p1"), true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "No account found")

	w = client.do(http.MethodPost, "/login", loginForm("", ""), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_BrowserRedirectsToNext(t *testing.T) {
	client, _ := setupTestRouter(t)
	client.do(http.MethodPost, "/register", registerForm("ana", "9", "p1"), true)

	w := client.do(http.MethodGet, "/whoami", nil, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fwhoami", w.Header().Get("Location"))

	form := loginForm("ana", "p1")
	form.Set("next", "/whoami")
	w = client.do(http.MethodPost, "/login", form, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/whoami", w.Header().Get("Location"))

	// Off-site targets are ignored
	form.Set("next", "//evil.example")
	w = client.do(http.MethodPost, "/login", form, false)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLogin_RateLimited(t *testing.T) {
	client, _ := setupTestRouter(t)
	client.do(http.MethodPost, "/register", registerForm("ana", "9", "p1"), true)

	for i := 0; i < 3; i++ {
		w := client.do(http.MethodPost, "/login", loginForm("ana", "nope"), true)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// Locked out even with the right password
	w := client.do(http.MethodPost, "/login", loginForm("ana", "p1"), true)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestAdminLogin(t *testing.T) {
	client, auditor := setupTestRouter(t)

	w := client.do(http.MethodGet, "/admin/books", nil, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	w = client.do(http.MethodPost, "/admin/login", url.Values{"password": {"wrong"}}, true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = client.do(http.MethodPost, "/admin/login", url.Values{"password": {"s3cret"}}, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/books", w.Header().Get("Location"))

	w = client.do(http.MethodGet, "/admin/books", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = client.do(http.MethodGet, "/admin/logout", nil, false)
	require.Equal(t, http.StatusFound, w.Code)

	w = client.do(http.MethodGet, "/admin/books", nil, true)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, []string{"admin:login:failed", "admin:login:ok", "admin:logout:ok"}, auditor.events)
}

func TestAdminFlagIndependentOfUserLogin(t *testing.T) {
	client, _ := setupTestRouter(t)
	client.do(http.MethodPost, "/register", registerForm("ana", "9", "p1"), true)
	client.do(http.MethodPost, "/login", loginForm("ana", "p1"), true)

	w := client.do(http.MethodGet, "/admin/books", nil, true)
	assert.Equal(t, http.StatusForbidden, w.Code, "a user login does not grant admin")

	client.do(http.MethodPost, "/admin/login", url.Values{"password": {"s3cret"}}, true)
	client.do(http.MethodGet, "/admin/logout", nil, true)

	w = client.do(http.MethodGet, "/whoami", nil, true)
	assert.Equal(t, http.StatusOK, w.Code, "admin logout keeps the user session")
}

func TestSanitizeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                  "/",
		"/books/1":          "/books/1",
		"//evil.com":        "/",
		"https://evil.com":  "/",
		"/\\evil.com":       "/",
		"books":             "/",
		"/profile?tab=time": "/profile?tab=time",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeRedirectPath(in), in)
	}
}
