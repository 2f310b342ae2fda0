package auth

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/config"
	"github.com/mrlokans/readingroom/internal/entities"
)

// Auditor records authentication outcomes.
type Auditor interface {
	LogAuth(userID *uint, action, name, ipAddr string, err error)
	LogAdmin(action, ipAddr string, success bool)
}

// adminLimiterKey is the rate limiter name used for admin sign-in attempts.
const adminLimiterKey = "\x00admin"

var errTooManyAttempts = errors.New("too many login attempts, please try again later")

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}

	// Protocol-relative URLs (//evil.com), schemes and backslash tricks
	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// userMessage turns an error into a sentence suitable for a flash message.
func userMessage(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, ErrValidation.Error()+": ")
	if msg == "" {
		return msg
	}
	runes := []rune(msg)
	runes[0] = unicode.ToUpper(runes[0])
	if !strings.HasSuffix(msg, ".") {
		return string(runes) + "."
	}
	return string(runes)
}

// ControllerOption configures an AuthController.
type ControllerOption func(*AuthController)

// WithAuditor records sign-in outcomes to the audit trail.
func WithAuditor(a Auditor) ControllerOption {
	return func(ac *AuthController) { ac.auditor = a }
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(log *zap.Logger) ControllerOption {
	return func(ac *AuthController) {
		if log != nil {
			ac.log = log
		}
	}
}

// AuthController handles user and admin sign-in endpoints.
type AuthController struct {
	service     *Service
	sessions    *SessionManager
	admin       *AdminGate
	templates   *template.Template
	rateLimiter *RateLimiter
	auditor     Auditor
	log         *zap.Logger
}

// NewAuthController creates a new authentication controller. Templates are
// read from <templatesPath>/auth; without them every page renders as JSON.
func NewAuthController(service *Service, sessions *SessionManager, admin *AdminGate, templatesPath string, cfg config.Auth, opts ...ControllerOption) *AuthController {
	var tmpl *template.Template
	if templatesPath != "" {
		pattern := filepath.Join(templatesPath, "auth", "*.html")
		parsed, err := template.ParseGlob(pattern)
		if err == nil {
			tmpl = parsed
		}
	}

	ac := &AuthController{
		service:   service,
		sessions:  sessions,
		admin:     admin,
		templates: tmpl,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ac)
	}
	return ac
}

// RateLimiter exposes the login limiter so callers can prune it.
func (ac *AuthController) RateLimiter() *RateLimiter {
	return ac.rateLimiter
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.GET("/logout", ac.Logout)
	router.POST("/logout", ac.Logout)

	router.GET("/admin/login", ac.AdminLoginPage)
	router.POST("/admin/login", ac.AdminLogin)
	router.GET("/admin/logout", ac.AdminLogout)
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	ac.renderTemplate(c, "register.html", gin.H{"Title": "Register"})
}

// Register handles the registration form submission.
func (ac *AuthController) Register(c *gin.Context) {
	name := c.PostForm("name")

	user, err := ac.service.Register(c.Request.Context(), name, c.PostForm("age"), c.PostForm("password"))
	if err != nil {
		ac.audit(func(a Auditor) { a.LogAuth(nil, "register", name, c.ClientIP(), err) })

		status := http.StatusInternalServerError
		message := "Registration failed. Please try again."
		switch {
		case errors.Is(err, ErrValidation):
			status, message = http.StatusBadRequest, userMessage(err)
		case errors.Is(err, ErrUserExists):
			status, message = http.StatusConflict, userMessage(err)
		default:
			ac.log.Error("registration failed", zap.String("name", name), zap.Error(err))
		}
		ac.fail(c, status, message, "/register")
		return
	}

	ac.audit(func(a Auditor) { a.LogAuth(&user.ID, "register", user.Name, c.ClientIP(), nil) })

	if IsAPIRequest(c) {
		c.JSON(http.StatusCreated, userResponse(user))
		return
	}
	ac.sessions.Flash(c.Request, "Registration successful. Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if ac.sessions.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.renderTemplate(c, "login.html", gin.H{
		"Title": "Login",
		"Next":  sanitizeRedirectPath(c.Query("next")),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	if !ac.allow(c, clientIP, name) {
		ac.fail(c, http.StatusTooManyRequests, userMessage(errTooManyAttempts), "/login")
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), name, c.PostForm("password"))
	if err != nil {
		ac.audit(func(a Auditor) { a.LogAuth(nil, "login", name, clientIP, err) })

		switch {
		case errors.Is(err, ErrValidation):
			ac.fail(c, http.StatusBadRequest, userMessage(err), "/login")
		case errors.Is(err, ErrUserNotFound):
			ac.rateLimiter.RecordFailure(clientIP, name)
			ac.fail(c, http.StatusUnauthorized, "No account found with that name. Please register or check the name.", "/login")
		case errors.Is(err, ErrInvalidPassword):
			ac.rateLimiter.RecordFailure(clientIP, name)
			ac.fail(c, http.StatusUnauthorized, userMessage(err), "/login")
		default:
			ac.log.Error("login failed", zap.String("name", name), zap.Error(err))
			ac.fail(c, http.StatusInternalServerError, "Login failed. Please try again.", "/login")
		}
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, name)

	if err := ac.sessions.CreateSession(c.Request, user); err != nil {
		ac.log.Error("failed to create session", zap.Uint("user_id", user.ID), zap.Error(err))
		ac.fail(c, http.StatusInternalServerError, "Failed to create session.", "/login")
		return
	}
	ac.audit(func(a Auditor) { a.LogAuth(&user.ID, "login", user.Name, clientIP, nil) })

	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, userResponse(user))
		return
	}
	ac.sessions.Flash(c.Request, "Welcome, "+user.Name+"!")
	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session, admin flag included.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := ac.sessions.GetUserID(c.Request)
	name := ac.sessions.GetString(c.Request.Context(), SessionKeyUsername)

	if err := ac.sessions.DestroySession(c.Request); err != nil {
		ac.log.Warn("failed to destroy session", zap.Error(err))
	}
	if userID != 0 {
		ac.audit(func(a Auditor) { a.LogAuth(&userID, "logout", name, c.ClientIP(), nil) })
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}
	ac.sessions.Flash(c.Request, "You have been logged out.")
	c.Redirect(http.StatusFound, "/")
}

// AdminLoginPage renders the admin password form.
func (ac *AuthController) AdminLoginPage(c *gin.Context) {
	if ac.sessions.IsAdmin(c.Request) {
		c.Redirect(http.StatusFound, "/admin/books")
		return
	}
	ac.renderTemplate(c, "admin_login.html", gin.H{"Title": "Admin login"})
}

// AdminLogin grants the admin flag when the shared secret matches.
func (ac *AuthController) AdminLogin(c *gin.Context) {
	clientIP := c.ClientIP()
	if !ac.allow(c, clientIP, adminLimiterKey) {
		ac.fail(c, http.StatusTooManyRequests, userMessage(errTooManyAttempts), "/admin/login")
		return
	}

	if !ac.admin.Verify(c.PostForm("password")) {
		ac.rateLimiter.RecordFailure(clientIP, adminLimiterKey)
		ac.audit(func(a Auditor) { a.LogAdmin("login", clientIP, false) })
		ac.fail(c, http.StatusUnauthorized, "Invalid admin password.", "/admin/login")
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, adminLimiterKey)
	if err := ac.sessions.SetAdmin(c.Request); err != nil {
		ac.log.Error("failed to set admin flag", zap.Error(err))
		ac.fail(c, http.StatusInternalServerError, "Failed to create session.", "/admin/login")
		return
	}
	ac.audit(func(a Auditor) { a.LogAdmin("login", clientIP, true) })

	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"is_admin": true})
		return
	}
	ac.sessions.Flash(c.Request, "Admin signed in.")
	c.Redirect(http.StatusFound, "/admin/books")
}

// AdminLogout drops the admin flag and keeps any user login.
func (ac *AuthController) AdminLogout(c *gin.Context) {
	wasAdmin := ac.sessions.IsAdmin(c.Request)
	ac.sessions.ClearAdmin(c.Request)
	if wasAdmin {
		ac.audit(func(a Auditor) { a.LogAdmin("logout", c.ClientIP(), true) })
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"is_admin": false})
		return
	}
	ac.sessions.Flash(c.Request, "Admin logged out.")
	c.Redirect(http.StatusFound, "/")
}

// allow checks the limiter and sets Retry-After when the pair is locked out.
func (ac *AuthController) allow(c *gin.Context, ip, name string) bool {
	if name == "" {
		return true
	}
	allowed, retryAfter := ac.rateLimiter.Allow(ip, name)
	if !allowed && retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	return allowed
}

// fail answers JSON clients with a status code and browsers with a flash
// message and a redirect back to the form.
func (ac *AuthController) fail(c *gin.Context, status int, message, redirectTo string) {
	if IsAPIRequest(c) {
		c.JSON(status, gin.H{"error": message})
		return
	}
	ac.sessions.Flash(c.Request, message)
	c.Redirect(http.StatusFound, redirectTo)
}

func (ac *AuthController) audit(fn func(Auditor)) {
	if ac.auditor != nil {
		fn(ac.auditor)
	}
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, name string, data gin.H) {
	data["Flash"] = ac.sessions.PopFlash(c.Request)

	if ac.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	data["CSRFField"] = CSRFTokenField(c)
	data["Session"] = ac.sessions.GetSessionData(c.Request)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		ac.log.Error("template error", zap.String("template", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "Template error")
	}
}

func userResponse(user *entities.User) gin.H {
	return gin.H{"id": user.ID, "name": user.Name, "age": user.Age}
}
