package interfaces

// Compile-time checks that concrete types satisfy the interfaces their
// consumers declare. Verify with: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/readingroom/internal/audit"
	"github.com/mrlokans/readingroom/internal/auth"
	"github.com/mrlokans/readingroom/internal/database/books"
	"github.com/mrlokans/readingroom/internal/database/users"
	"github.com/mrlokans/readingroom/internal/http"
	"github.com/mrlokans/readingroom/internal/maintenance"
	"github.com/mrlokans/readingroom/internal/pages"
	"github.com/mrlokans/readingroom/internal/reading"
	"github.com/mrlokans/readingroom/internal/scheduler"
	"github.com/mrlokans/readingroom/internal/tasks"
	"github.com/mrlokans/readingroom/internal/uploads"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ auth.UserStore = (*users.Repository)(nil)
var _ pages.BookChecker = (*books.Repository)(nil)
var _ reading.BookChecker = (*books.Repository)(nil)
var _ pages.FileStore = (*uploads.Store)(nil)

// =============================================================================
// Audit
// =============================================================================

var _ auth.Auditor = (*audit.Service)(nil)
var _ http.CatalogAuditor = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.UploadSweeper = (*maintenance.Sweeper)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ scheduler.Pruner = (*auth.RateLimiter)(nil)
