package http

import (
	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/audit"
	"github.com/mrlokans/readingroom/internal/auth"
	"github.com/mrlokans/readingroom/internal/catalog"
	"github.com/mrlokans/readingroom/internal/database"
	"github.com/mrlokans/readingroom/internal/pages"
	"github.com/mrlokans/readingroom/internal/reading"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
type RouterConfig struct {
	Database *database.Database
	Logger   *zap.Logger

	// Domain services
	Catalog *catalog.Service
	Pages   *pages.Engine
	Tracker *reading.Tracker
	Audit   *audit.Service

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController
	CSRFSecret     []byte // CSRF protection is off when empty
	SecureCookies  bool   // Also turns on HSTS

	// Optional; nil when background tasks are disabled
	TaskQueue TaskQueue

	// Paths
	TemplatesPath string
	StaticPath    string
	UploadsDir    string

	MaxMultipartMemory int64
	Version            string
}
