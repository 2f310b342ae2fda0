package config

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./instance/database.db"

	// DefaultUploadsDir is where cover and page images are written, one directory per book
	DefaultUploadsDir = "./instance/uploads"

	// DefaultAdminPassword is only meant for local development; set ADMIN_PASSWORD elsewhere.
	DefaultAdminPassword = "changeme-admin"
)
