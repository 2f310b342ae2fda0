// Package database owns the SQLite store: connection setup and versioned
// schema migrations.
//
//	database/
//	├── database.go          # Connection, goose provider, Migrate/Status/Version
//	├── legacy.go            # Go migration reconciling pre-versioned schemas
//	├── migrations/          # Embedded SQL migrations
//	├── books/               # Book rows
//	├── pages/               # Page rows and rank bookkeeping
//	├── readingsessions/     # Reading session rows and profile aggregates
//	├── users/               # Registered readers
//	├── notes/               # Index page notes
//	└── audit/               # Audit trail
//
// Each sub-package exposes a Repository built with NewRepository(db *gorm.DB):
//
//	db, err := database.NewDatabase("./instance/database.db")
//	pagesRepo := pages.NewRepository(db.DB)
//	list, err := pagesRepo.ListByBook(ctx, bookID)
//
// The schema is owned by the migrations; gorm's AutoMigrate is never used.
package database
