package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/advisor-scheduler/internal/model"
)

const meetingColumns = `id, start_time, topic, zoom_meeting_id, join_url, user_id, advisor_id`

// MeetingRepo provides data access to the meetings table.
type MeetingRepo struct{ db *sql.DB }

func NewMeetingRepo(db *sql.DB) *MeetingRepo { return &MeetingRepo{db: db} }

func scanMeeting(row rowScanner) (model.Meeting, error) {
	var m model.Meeting
	err := row.Scan(&m.ID, &m.StartTime, &m.Topic, &m.ExternalID, &m.JoinURL, &m.UserID, &m.AdvisorID)
	return m, err
}

// CreateScheduled inserts the meeting and stamps the owner's
// last_meeting_scheduled in one transaction, so either both rows change
// or neither does.
func (r *MeetingRepo) CreateScheduled(ctx context.Context, m model.Meeting, scheduledAt time.Time) (model.Meeting, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Meeting{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO meetings (start_time, topic, zoom_meeting_id, join_url, user_id, advisor_id)
		 VALUES (?,?,?,?,?,?)`,
		m.StartTime.UTC(), m.Topic, m.ExternalID, m.JoinURL, m.UserID, m.AdvisorID)
	if err != nil {
		return model.Meeting{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Meeting{}, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET last_meeting_scheduled = ? WHERE id = ?`, scheduledAt.UTC(), m.UserID); err != nil {
		return model.Meeting{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Meeting{}, err
	}
	committed = true
	m.ID = uint64(id)
	return m, nil
}

// GetByExternalID fetches a meeting by the provider's meeting id.
func (r *MeetingRepo) GetByExternalID(ctx context.Context, externalID string) (model.Meeting, error) {
	m, err := scanMeeting(r.db.QueryRowContext(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE zoom_meeting_id = ? LIMIT 1", externalID))
	return m, translate(err)
}

// ListByUser returns the user's meetings, soonest first.
func (r *MeetingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Meeting, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE user_id = ? ORDER BY start_time", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateStartTime changes the start time of the meeting with externalID.
func (r *MeetingRepo) UpdateStartTime(ctx context.Context, externalID string, start time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE meetings SET start_time = ? WHERE zoom_meeting_id = ?", start.UTC(), externalID)
	return err
}

// DeleteByExternalID removes the meeting with externalID.
func (r *MeetingRepo) DeleteByExternalID(ctx context.Context, externalID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM meetings WHERE zoom_meeting_id = ?", externalID)
	return err
}
