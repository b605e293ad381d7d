package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/service"
)

// UserAdmin is satisfied by *service.UserService.
type UserAdmin interface {
	Create(ctx context.Context, in service.NewUser, p service.CreatePolicy) (model.User, error)
	Get(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, skip, limit int) ([]model.User, error)
	Update(ctx context.Context, id uint64, upd model.UserUpdate) (model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// AdvisorAdmin is satisfied by *service.AdvisorService.
type AdvisorAdmin interface {
	Create(ctx context.Context, name, email string) (model.Advisor, error)
	List(ctx context.Context) ([]model.Advisor, error)
}

var (
	_ UserAdmin    = (*service.UserService)(nil)
	_ AdvisorAdmin = (*service.AdvisorService)(nil)
)

// AdminHandler serves the ADMIN-only account and advisor endpoints.
type AdminHandler struct {
	Users    UserAdmin
	Advisors AdvisorAdmin
}

func NewAdminHandler(u UserAdmin, a AdvisorAdmin) *AdminHandler {
	return &AdminHandler{Users: u, Advisors: a}
}

type createUserReq struct {
	FirstName   string     `json:"first_name" validate:"required"`
	SecondName  *string    `json:"second_name"`
	LastName    string     `json:"lastname" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	PhoneNumber *string    `json:"phone_number" validate:"omitempty,min=1"`
	Document    *string    `json:"document" validate:"omitempty,min=1"`
	Password    *string    `json:"plain_password"`
	Role        model.Role `json:"role" validate:"omitempty,oneof=REGULAR ADMIN"`
	IsActive    bool       `json:"is_active"`
}

type updateUserReq struct {
	FirstName            *string     `json:"first_name" validate:"omitempty,min=1"`
	SecondName           *string     `json:"second_name"`
	LastName             *string     `json:"lastname" validate:"omitempty,min=1"`
	Email                *string     `json:"email" validate:"omitempty,email"`
	PhoneNumber          *string     `json:"phone_number" validate:"omitempty,max=32"`
	Document             *string     `json:"document" validate:"omitempty,max=64"`
	Password             *string     `json:"plain_password"`
	LastMeetingScheduled *time.Time  `json:"last_meeting_scheduled"`
	IsActive             *bool       `json:"is_active"`
	Role                 *model.Role `json:"role" validate:"omitempty,oneof=REGULAR ADMIN"`
}

type advisorReq struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func userID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "id must be a positive integer")
	}
	return id, nil
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, name+" must be a non-negative integer")
	}
	return n, nil
}

func (h *AdminHandler) ReadUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// ReadUsers pages with ?skip= and ?limit= (default 0 and 100).
func (h *AdminHandler) ReadUsers(c echo.Context) error {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		return err
	}
	users, err := h.Users.List(c.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Users.Create(c.Request().Context(), service.NewUser{
		FirstName:   req.FirstName,
		SecondName:  req.SecondName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Document:    req.Document,
		Password:    req.Password,
		Role:        req.Role,
		IsActive:    req.IsActive,
	}, service.AdminPolicy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func (h *AdminHandler) ModifyUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Users.Update(c.Request().Context(), id, model.UserUpdate{
		FirstName:            req.FirstName,
		SecondName:           req.SecondName,
		LastName:             req.LastName,
		Email:                req.Email,
		PhoneNumber:          req.PhoneNumber,
		Document:             req.Document,
		Password:             req.Password,
		LastMeetingScheduled: req.LastMeetingScheduled,
		IsActive:             req.IsActive,
		Role:                 req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// DeleteUser removes the account and returns it as it was.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	u, err := h.Users.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func (h *AdminHandler) CreateAdvisor(c echo.Context) error {
	var req advisorReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.Advisors.Create(c.Request().Context(), req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAdvisor(a))
}

func (h *AdminHandler) ListAdvisors(c echo.Context) error {
	as, err := h.Advisors.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]advisorResponse, 0, len(as))
	for _, a := range as {
		out = append(out, toAdvisor(a))
	}
	return c.JSON(http.StatusOK, out)
}
