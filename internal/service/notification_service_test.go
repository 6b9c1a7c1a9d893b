package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludgo/turnos-api/internal/models"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
	"github.com/saludgo/turnos-api/pkg/jobs"
)

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if filter.UserID != "" && n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			m.notifications[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func TestNotifyDeliversThroughQueue(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, jobs.QueueConfig{Workers: 1}, nil)

	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify("user-1", models.NotificationSlotReserved, "Turno reservado", "Se reservó un turno")

	require.Eventually(t, func() bool {
		return repo.count() == 1
	}, time.Second, 10*time.Millisecond)

	items, _, err := svc.List(context.Background(), &models.JWTClaims{UserID: "user-1", Role: models.RolePatient}, models.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationSlotReserved, items[0].Kind)
	assert.False(t, items[0].Read)
}

func TestNotifyBeforeStartIsDropped(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, jobs.QueueConfig{Workers: 1}, nil)

	// Never started: delivery is best effort, the call must not panic or block.
	svc.Notify("user-1", models.NotificationNewSchedule, "Nueva agenda", "mensaje")
	assert.Equal(t, 0, repo.count())
}

func TestNotificationListScopedToCaller(t *testing.T) {
	repo := &mockNotificationRepo{notifications: []models.Notification{
		{ID: "n-1", UserID: "user-1", Kind: models.NotificationSlotReserved},
		{ID: "n-2", UserID: "user-2", Kind: models.NotificationSlotCancelled},
	}}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, nil)

	items, _, err := svc.List(context.Background(), &models.JWTClaims{UserID: "user-1"}, models.NotificationFilter{UserID: "user-2"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n-1", items[0].ID)
}

func TestNotificationUnreadFilter(t *testing.T) {
	repo := &mockNotificationRepo{notifications: []models.Notification{
		{ID: "n-1", UserID: "user-1", Read: true},
		{ID: "n-2", UserID: "user-1"},
	}}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, nil)

	items, _, err := svc.List(context.Background(), &models.JWTClaims{UserID: "user-1"}, models.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n-2", items[0].ID)
}

func TestMarkReadOwnNotification(t *testing.T) {
	repo := &mockNotificationRepo{notifications: []models.Notification{
		{ID: "n-1", UserID: "user-1"},
	}}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, nil)

	require.NoError(t, svc.MarkRead(context.Background(), &models.JWTClaims{UserID: "user-1"}, "n-1"))
	assert.True(t, repo.notifications[0].Read)
}

func TestMarkReadForeignNotificationNotFound(t *testing.T) {
	repo := &mockNotificationRepo{notifications: []models.Notification{
		{ID: "n-1", UserID: "user-2"},
	}}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, nil)

	err := svc.MarkRead(context.Background(), &models.JWTClaims{UserID: "user-1"}, "n-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
