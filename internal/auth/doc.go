// Package auth provides user accounts, sessions and the admin gate.
//
// Users register with a name, an age and a password (bcrypt hashed) and
// sign in with a session cookie backed by the sessions table
// (scs + sqlite3store). Admin access is a separate flag on the session,
// granted by entering the shared ADMIN_PASSWORD secret:
//
//	ADMIN_PASSWORD=<secret>           # changeme-admin outside production logs a warning
//	AUTH_SESSION_SECRET=<32 bytes>    # enables CSRF protection
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true          # HTTPS-only cookies and HSTS
//
// # Usage
//
//	sessions := auth.NewSessionManager(sqlDB, cfg.Auth)
//	service := auth.NewService(usersRepo, cfg.Auth)
//	mw := auth.NewMiddleware(service, sessions)
//	router.Use(sessions.SessionLoadSave(), mw.Handler())
//	router.GET("/profile", mw.RequireUser(), handler)
//
// Extract the identity in handlers:
//
//	userID := auth.GetUserID(c) // 0 when anonymous
package auth
