package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
)

// memAdvisors orders advisors the way the repository query does:
// oldest last_assigned_time first, ties broken by id.
type memAdvisors struct {
	mu   sync.Mutex
	rows []model.Advisor
	now  func() time.Time
}

func (m *memAdvisors) Create(_ context.Context, name, email string) (model.Advisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := model.Advisor{ID: uint64(len(m.rows) + 1), Name: name, Email: email, LastAssignedTime: m.now()}
	m.rows = append(m.rows, a)
	return a, nil
}

func (m *memAdvisors) GetByEmail(_ context.Context, email string) (model.Advisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Advisor{}, repository.ErrNotFound
}

func (m *memAdvisors) List(context.Context) ([]model.Advisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Advisor(nil), m.rows...), nil
}

func (m *memAdvisors) Next(context.Context) (model.Advisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return model.Advisor{}, repository.ErrNotFound
	}
	pick := 0
	for i, a := range m.rows {
		p := m.rows[pick]
		if a.LastAssignedTime.Before(p.LastAssignedTime) ||
			(a.LastAssignedTime.Equal(p.LastAssignedTime) && a.ID < p.ID) {
			pick = i
		}
	}
	out := m.rows[pick]
	m.rows[pick].LastAssignedTime = m.now()
	return out, nil
}

func TestAdvisorRotation(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &memAdvisors{now: func() time.Time { return now }}
	store.rows = []model.Advisor{
		{ID: 1, Name: "A", LastAssignedTime: now.Add(-10 * time.Minute)},
		{ID: 2, Name: "B", LastAssignedTime: now.Add(-5 * time.Minute)},
	}
	svc := NewAdvisorService(store)
	ctx := context.Background()

	first, err := svc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", first.Name)

	second, err := svc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", second.Name)

	// both stamped at the same instant; the lower id goes first
	third, err := svc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", third.Name)
}

func TestAdvisorRotationEmpty(t *testing.T) {
	svc := NewAdvisorService(&memAdvisors{now: time.Now})
	_, err := svc.Next(context.Background())
	assert.Equal(t, apperror.KindNoAdvisor, apperror.KindOf(err))
}
