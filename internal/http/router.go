package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/auth"
)

// NewRouter creates the HTTP router with every endpoint registered.
// Pages render as JSON when TemplatesPath holds no templates.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(Recovery(log))
	router.Use(AccessLog(log))
	router.Use(auth.SecurityHeadersMiddleware(cfg.SecureCookies))

	// CSRF runs before the session middleware so the session context
	// survives gorilla/csrf's request replacement.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(cfg.AuthMiddleware.Handler())

	if cfg.MaxMultipartMemory > 0 {
		router.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	tmpl, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	if tmpl != nil {
		router.SetHTMLTemplate(tmpl)
	}

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}
	if cfg.UploadsDir != "" {
		router.Static(UploadsURLPrefix, cfg.UploadsDir)
	}

	r := responder{sessions: cfg.SessionManager, html: tmpl != nil, log: log}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	library := NewLibraryController(r, cfg.Catalog, cfg.Pages)
	router.GET("/", library.Index)
	router.GET("/books", library.Books)
	router.GET("/books/:id", library.Book)
	router.GET("/books/:id/read", library.Read)
	router.GET("/books/:id/pages", library.Pages)
	router.GET("/search", library.Search)
	router.GET("/search/suggest", library.Suggest)

	notes := NewNotesController(r, cfg.Catalog)
	router.POST("/add", notes.Add)
	router.POST("/delete/:id", notes.Delete)

	readingController := NewReadingController(r, cfg.AuthService, cfg.Tracker)
	user := router.Group("/", cfg.AuthMiddleware.RequireUser())
	{
		user.GET("/profile", readingController.Profile)
		user.POST("/reading/start", readingController.Start)
		user.POST("/reading/stop", readingController.Stop)
	}

	var auditor CatalogAuditor
	if cfg.Audit != nil {
		auditor = cfg.Audit
	}
	admin := NewAdminController(r, cfg.Catalog, cfg.Pages, auditor)
	tasksController := NewTasksController(r, cfg.TaskQueue)
	adminGroup := router.Group("/admin", cfg.AuthMiddleware.RequireAdmin())
	{
		adminGroup.GET("/books", admin.Books)
		adminGroup.POST("/books/add", admin.AddBook)
		adminGroup.POST("/books/delete/:id", admin.DeleteBook)
		adminGroup.GET("/books/:id/pages", admin.Pages)
		adminGroup.POST("/books/:id/pages", admin.UploadPages)
		adminGroup.POST("/books/:id/pages/delete/:page_id", admin.DeletePage)
		adminGroup.POST("/books/:id/pages/move/:page_id", admin.MovePage)

		if cfg.Audit != nil {
			auditController := NewAuditController(r, cfg.Audit)
			adminGroup.GET("/audit", auditController.AuditLog)
		}

		adminGroup.GET("/tasks", tasksController.ListTaskTypes)
		adminGroup.GET("/tasks/status/:id", tasksController.GetTaskStatus)
		adminGroup.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router, nil
}
