// Package interfaces holds compile-time checks for the small interfaces the
// application's packages declare at their point of use.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - auth.UserStore: user persistence (internal/auth/service.go)
//   - pages.BookChecker, reading.BookChecker: book existence (internal/pages, internal/reading)
//   - pages.FileStore: page image storage (internal/pages/engine.go)
//
// ## Audit Interfaces
//
//   - auth.Auditor: sign-in and admin events (internal/auth/handlers.go)
//   - http.CatalogAuditor: book and page changes (internal/http/admin.go)
//   - tasks.AuditEventCleaner: retention cleanup (internal/tasks/cleanup_audit.go)
//
// ## Background Work Interfaces
//
//   - tasks.UploadSweeper: orphan upload removal (internal/tasks/sweep_uploads.go)
//   - http.TaskQueue: admin task triggers (internal/http/tasks.go)
//   - scheduler.Enqueuer, scheduler.Pruner: cron jobs (internal/scheduler/maintenance.go)
//
// # Adding a New Implementation
//
// Declare the interface where it is consumed, then add a check here:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
package interfaces
