package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
)

// MeetingService coordinates advisor assignment, the video provider and
// local persistence.  Local rows mirror provider state: a provider failure
// never leaves a local change behind.
type MeetingService struct {
	advisors *AdvisorService
	meetings MeetingStore
	provider MeetingProvider
	notify   Notifications
	log      zerolog.Logger
	now      func() time.Time
}

func NewMeetingService(advisors *AdvisorService, meetings MeetingStore, provider MeetingProvider,
	notify Notifications, log zerolog.Logger) *MeetingService {
	return &MeetingService{
		advisors: advisors,
		meetings: meetings,
		provider: provider,
		notify:   notify,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Schedule books a meeting for user.  Preconditions are checked in order:
// the meeting cooldown, then advisor availability.
func (s *MeetingService) Schedule(ctx context.Context, user model.User, start time.Time, topic string) (model.Meeting, error) {
	now := s.now()
	if !user.CanScheduleMeeting(now) {
		return model.Meeting{}, apperror.CooldownActive()
	}
	advisor, err := s.advisors.Next(ctx)
	if err != nil {
		return model.Meeting{}, err
	}

	zm, err := s.provider.CreateMeeting(ctx, topic, start)
	if err != nil {
		s.log.Error().Err(err).Uint64("user_id", user.ID).Msg("provider rejected meeting creation")
		return model.Meeting{}, apperror.Provider(apperror.OpCreateMeeting, err)
	}

	m, err := s.meetings.CreateScheduled(ctx, model.Meeting{
		StartTime:  start.UTC(),
		Topic:      topic,
		ExternalID: zm.ExternalID(),
		JoinURL:    zm.JoinURL,
		UserID:     user.ID,
		AdvisorID:  advisor.ID,
	}, now)
	if err != nil {
		// The provider meeting now has no local row.
		s.log.Error().Err(err).Str("external_id", zm.ExternalID()).Msg("meeting created at provider but not stored")
		return model.Meeting{}, apperror.Internal("could not store meeting", err)
	}

	s.notify.MeetingScheduled(ctx, user, advisor, m)
	return m, nil
}

// Update moves the meeting identified by the provider's id.
func (s *MeetingService) Update(ctx context.Context, externalID string, start time.Time) (model.Meeting, error) {
	m, err := s.meetings.GetByExternalID(ctx, externalID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Meeting{}, apperror.NotFound("Meeting id not found")
	}
	if err != nil {
		return model.Meeting{}, apperror.Internal("could not load meeting", err)
	}
	if err := s.provider.UpdateMeeting(ctx, externalID, m.Topic, start); err != nil {
		return model.Meeting{}, apperror.Provider(apperror.OpPatchMeeting, err)
	}
	if err := s.meetings.UpdateStartTime(ctx, externalID, start); err != nil {
		return model.Meeting{}, apperror.Internal("could not update meeting", err)
	}
	m.StartTime = start.UTC()
	return m, nil
}

// Delete cancels the meeting at the provider, then drops the local row.
func (s *MeetingService) Delete(ctx context.Context, externalID string) error {
	if err := s.provider.DeleteMeeting(ctx, externalID); err != nil {
		return apperror.Provider(apperror.OpDeleteMeeting, err)
	}
	if err := s.meetings.DeleteByExternalID(ctx, externalID); err != nil {
		return apperror.Internal("could not delete meeting", err)
	}
	return nil
}

// ListForUser returns the user's meetings.
func (s *MeetingService) ListForUser(ctx context.Context, userID uint64) ([]model.Meeting, error) {
	out, err := s.meetings.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("could not list meetings", err)
	}
	return out, nil
}
