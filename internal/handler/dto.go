package handler

import (
	"time"

	"github.com/iliyamo/advisor-scheduler/internal/model"
)

type userResponse struct {
	ID                   uint64     `json:"id"`
	FirstName            string     `json:"first_name"`
	SecondName           *string    `json:"second_name"`
	LastName             string     `json:"lastname"`
	Email                string     `json:"email"`
	PhoneNumber          *string    `json:"phone_number"`
	Document             *string    `json:"document"`
	IsActive             bool       `json:"is_active"`
	Role                 model.Role `json:"role"`
	CreatedAt            time.Time  `json:"created_at"`
	LastMeetingScheduled *time.Time `json:"last_meeting_scheduled"`
}

func toUser(u model.User) userResponse {
	return userResponse{
		ID:                   u.ID,
		FirstName:            u.FirstName,
		SecondName:           u.SecondName,
		LastName:             u.LastName,
		Email:                u.Email,
		PhoneNumber:          u.PhoneNumber,
		Document:             u.Document,
		IsActive:             u.IsActive,
		Role:                 u.Role,
		CreatedAt:            u.CreatedAt,
		LastMeetingScheduled: u.LastMeetingScheduled,
	}
}

type meetingResponse struct {
	ID            uint64    `json:"id"`
	StartTime     time.Time `json:"start_time"`
	Topic         string    `json:"topic"`
	ZoomMeetingID string    `json:"zoom_meeting_id"`
	JoinURL       string    `json:"join_url"`
	UserID        uint64    `json:"user_id"`
	AdvisorID     uint64    `json:"advisor_id"`
}

func toMeeting(m model.Meeting) meetingResponse {
	return meetingResponse{
		ID:            m.ID,
		StartTime:     m.StartTime,
		Topic:         m.Topic,
		ZoomMeetingID: m.ExternalID,
		JoinURL:       m.JoinURL,
		UserID:        m.UserID,
		AdvisorID:     m.AdvisorID,
	}
}

type advisorResponse struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	LastAssignedTime time.Time `json:"last_assigned_time"`
}

func toAdvisor(a model.Advisor) advisorResponse {
	return advisorResponse{ID: a.ID, Name: a.Name, Email: a.Email, LastAssignedTime: a.LastAssignedTime}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Email       string `json:"email"`
}
