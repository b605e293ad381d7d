package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
)

// AdvisorService manages advisors and the least-recently-assigned rotation.
type AdvisorService struct {
	advisors AdvisorStore
}

func NewAdvisorService(advisors AdvisorStore) *AdvisorService {
	return &AdvisorService{advisors: advisors}
}

// Next returns the advisor assigned longest ago and marks it assigned now.
func (s *AdvisorService) Next(ctx context.Context) (model.Advisor, error) {
	a, err := s.advisors.Next(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Advisor{}, apperror.NoAdvisor()
	}
	if err != nil {
		return model.Advisor{}, apperror.Internal("could not assign advisor", err)
	}
	return a, nil
}

func (s *AdvisorService) Create(ctx context.Context, name, email string) (model.Advisor, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return model.Advisor{}, apperror.Validation("Advisor name and email are required")
	}
	a, err := s.advisors.Create(ctx, name, email)
	if errors.Is(err, repository.ErrConflict) {
		return model.Advisor{}, apperror.Conflict("Advisor already registered")
	}
	if err != nil {
		return model.Advisor{}, apperror.Internal("could not create advisor", err)
	}
	return a, nil
}

// Exists reports whether an advisor with email is registered.
func (s *AdvisorService) Exists(ctx context.Context, email string) (bool, error) {
	_, err := s.advisors.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.Internal("could not load advisor", err)
	}
	return true, nil
}

func (s *AdvisorService) List(ctx context.Context) ([]model.Advisor, error) {
	out, err := s.advisors.List(ctx)
	if err != nil {
		return nil, apperror.Internal("could not list advisors", err)
	}
	return out, nil
}
