package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes constructs the HTTP router for the dashboard.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(a.Logger))
	r.Use(RecoveryMiddleware(a.Logger))

	r.Get("/login", a.handleLoginPage)
	r.Post("/login", a.handleLogin)
	r.Get("/register", a.handleRegisterPage)
	r.Post("/register", a.handleRegister)
	r.Post("/logout", a.handleLogout)

	r.Get("/oauth/{provider}/start", a.handleOAuthStart)
	r.Get("/oauth/{provider}/callback", a.handleOAuthCallback)

	r.Get("/password/forgot", a.handleForgotPage)
	r.Post("/password/forgot", a.handleForgot)
	r.Get("/password/reset", a.handleResetPage)
	r.Post("/password/reset", a.handleReset)

	r.Group(func(r chi.Router) {
		r.Use(a.requireSession)
		r.Get("/", a.handleDashboard)
		r.Get("/sales", a.handleSales)
		r.Post("/sales", a.handleCreateSale)
		r.Get("/customers", a.handleCustomers)
		r.Get("/customers/{id}", a.handleCustomer)
		r.Get("/security", a.handleSecurityLog)
		r.Get("/settings", a.handleSettingsPage)
		r.Post("/settings/password", a.handleChangePassword)
	})

	return r
}
