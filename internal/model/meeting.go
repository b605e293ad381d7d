package model

import "time"

// Advisor mirrors the `advisors` table.  The advisor with the oldest
// LastAssignedTime is the next one handed out by the rotation.
type Advisor struct {
	ID               uint64
	Name             string
	Email            string
	LastAssignedTime time.Time
}

// Meeting mirrors the `meetings` table.  ExternalID and JoinURL come from
// the video-conferencing provider; the local row is a cache of provider state.
type Meeting struct {
	ID         uint64
	StartTime  time.Time
	Topic      string
	ExternalID string
	JoinURL    string
	UserID     uint64
	AdvisorID  uint64
}

// MeetingDuration is the fixed length of every scheduled meeting.
const MeetingDuration = 30 * time.Minute
