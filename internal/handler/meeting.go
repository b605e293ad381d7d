package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advisor-scheduler/internal/middleware"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/service"
)

// Scheduler is the meeting side of the service layer.  It is satisfied by
// *service.MeetingService.
type Scheduler interface {
	Schedule(ctx context.Context, user model.User, start time.Time, topic string) (model.Meeting, error)
	Update(ctx context.Context, externalID string, start time.Time) (model.Meeting, error)
	Delete(ctx context.Context, externalID string) error
	ListForUser(ctx context.Context, userID uint64) ([]model.Meeting, error)
}

var _ Scheduler = (*service.MeetingService)(nil)

type MeetingHandler struct {
	Meetings Scheduler
}

func NewMeetingHandler(m Scheduler) *MeetingHandler { return &MeetingHandler{Meetings: m} }

type scheduleReq struct {
	StartTime time.Time `json:"start_time"`
	Topic     string    `json:"topic" validate:"required"`
}

type editMeetingReq struct {
	StartTime time.Time `json:"start_time"`
}

func requireStart(t time.Time) error {
	if t.IsZero() {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "start_time field must be provided")
	}
	return nil
}

// Schedule books a meeting with the next advisor for the caller.
func (h *MeetingHandler) Schedule(c echo.Context) error {
	var req scheduleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := requireStart(req.StartTime); err != nil {
		return err
	}
	u, _ := middleware.CurrentUser(c)
	m, err := h.Meetings.Schedule(c.Request().Context(), u, req.StartTime, strings.TrimSpace(req.Topic))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Meeting scheduled successfully",
		"meeting_id": m.ID,
		"join_url":   m.JoinURL,
	})
}

// List returns the caller's meetings.
func (h *MeetingHandler) List(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	ms, err := h.Meetings.ListForUser(c.Request().Context(), u.ID)
	if err != nil {
		return err
	}
	out := make([]meetingResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMeeting(m))
	}
	return c.JSON(http.StatusOK, out)
}

// Edit moves a meeting; :id is the provider's meeting id.
func (h *MeetingHandler) Edit(c echo.Context) error {
	var req editMeetingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := requireStart(req.StartTime); err != nil {
		return err
	}
	m, err := h.Meetings.Update(c.Request().Context(), c.Param("id"), req.StartTime)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeeting(m))
}

// Delete cancels a meeting; :id is the provider's meeting id.
func (h *MeetingHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.Meetings.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Meeting deleted successfully", "zoom_meeting_id": id})
}
