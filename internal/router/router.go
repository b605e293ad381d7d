// Package router registers the HTTP routes and the middleware each group needs.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advisor-scheduler/internal/handler"
	"github.com/iliyamo/advisor-scheduler/internal/middleware"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/ratelimit"
)

// Limits configures the rate-limited routes.  A nil Limiter disables them.
type Limits struct {
	Limiter  *ratelimit.Limiter
	Login    middleware.Rule
	Recovery middleware.Rule
}

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth     *handler.AuthHandler
	Meetings *handler.MeetingHandler
	Admin    *handler.AdminHandler
	Health   echo.HandlerFunc
	Users    middleware.UserResolver
}

// Register wires every route onto e.
func Register(e *echo.Echo, h Handlers, limits Limits) {
	e.GET("/healthz", h.Health)

	// account lifecycle, no session required
	e.POST("/register", h.Auth.Register)
	e.PATCH("/confirm-user-account", h.Auth.ConfirmAccount)
	e.POST("/login", h.Auth.Login,
		middleware.RateLimit(limits.Limiter, limits.Login, middleware.FormField("username")))
	e.POST("/logout", h.Auth.Logout)
	e.GET("/login/google", h.Auth.GoogleLogin)
	e.GET("/auth", h.Auth.GoogleCallback)
	e.GET("/password-recovery/:email", h.Auth.PasswordRecovery,
		middleware.RateLimit(limits.Limiter, limits.Recovery, middleware.PathParam("email")))
	e.PATCH("/reset-password", h.Auth.ResetPassword)

	// Route-level middleware: group middleware with an empty prefix would also
	// run for unknown paths and turn their 404 into a 401.
	authed := middleware.Authenticate(h.Users)
	active := middleware.RequireActive()
	admin := middleware.RequireRole(model.RoleAdmin)

	e.GET("/me", h.Auth.Me, authed)

	e.POST("/schedule-meeting/", h.Meetings.Schedule, authed, active)
	e.GET("/meetings", h.Meetings.List, authed, active)

	e.PATCH("/edit/meeting/:id", h.Meetings.Edit, authed, active, admin)
	e.DELETE("/delete/meeting/:id", h.Meetings.Delete, authed, active, admin)

	e.GET("/admin/read-user/:id", h.Admin.ReadUser, authed, active, admin)
	e.GET("/admin/read-users", h.Admin.ReadUsers, authed, active, admin)
	e.PUT("/admin/modify-user-account/:id", h.Admin.ModifyUser, authed, active, admin)
	e.POST("/admin/create-new-account", h.Admin.CreateUser, authed, active, admin)
	e.DELETE("/admin/delete-user-account/:id", h.Admin.DeleteUser, authed, active, admin)
	e.POST("/admin/advisors", h.Admin.CreateAdvisor, authed, active, admin)
	e.GET("/admin/advisors", h.Admin.ListAdvisors, authed, active, admin)
}
