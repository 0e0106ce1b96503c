package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lekesiz/HECS/internal/domain"
)

type mockPresence struct {
	marked []uuid.UUID
	err    error
}

func (m *mockPresence) MarkOnline(_ context.Context, deviceID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.marked = append(m.marked, deviceID)
	return nil
}

func (m *mockPresence) Online(_ context.Context, deviceID uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, id := range m.marked {
		if id == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPresence) OnlineCount(_ context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.marked), nil
}

func memDeviceStore(device *domain.Device) *mockDeviceRepo {
	return &mockDeviceRepo{
		createFunc: func(_ context.Context, d *domain.Device) error {
			*device = *d
			return nil
		},
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Device, error) {
			if device.ID != id {
				return nil, domain.ErrDeviceNotFound
			}
			cp := *device
			return &cp, nil
		},
		getByDeviceIDFunc: func(_ context.Context, deviceID string) (*domain.Device, error) {
			if device.DeviceID != deviceID {
				return nil, domain.ErrDeviceNotFound
			}
			cp := *device
			return &cp, nil
		},
		updateFunc: func(_ context.Context, d *domain.Device) error {
			*device = *d
			return nil
		},
		deleteFunc: func(_ context.Context, _ uuid.UUID) error {
			return nil
		},
	}
}

func TestDeviceService_CreateStartsOffline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var stored domain.Device
	notifier := &recordingNotifier{}
	svc := NewDeviceService(memDeviceStore(&stored), &mockPresence{}, notifier, clock)

	device, err := svc.Create(context.Background(), CreateDeviceRequest{
		Name:       "gateway-01",
		DeviceID:   "GW-0001",
		CustomerID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DeviceStatusOffline, device.Status)
	assert.Nil(t, device.LastSeen)
	require.Len(t, notifier.deviceEvents, 1)
	assert.Equal(t, "created", notifier.deviceEvents[0]["action"])
}

func TestDeviceService_CreateRejectsDuplicateDeviceID(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stored := domain.Device{ID: uuid.New(), DeviceID: "GW-0001"}
	svc := NewDeviceService(memDeviceStore(&stored), &mockPresence{}, &recordingNotifier{}, clock)

	_, err := svc.Create(context.Background(), CreateDeviceRequest{
		Name:       "gateway-01",
		DeviceID:   "GW-0001",
		CustomerID: uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateDevice)
}

func TestDeviceService_HeartbeatMarksOnline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stored := domain.Device{ID: uuid.New(), DeviceID: "GW-0001", Status: domain.DeviceStatusOffline}
	presence := &mockPresence{}
	notifier := &recordingNotifier{}
	svc := NewDeviceService(memDeviceStore(&stored), presence, notifier, clock)

	clock.Advance(time.Minute)
	device, err := svc.Heartbeat(context.Background(), stored.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.DeviceStatusOnline, device.Status)
	require.NotNil(t, device.LastSeen)
	assert.Equal(t, clock.Now().UTC(), *device.LastSeen)

	require.Len(t, presence.marked, 1)
	assert.Equal(t, stored.ID, presence.marked[0])

	require.Len(t, notifier.deviceEvents, 1)
	assert.Equal(t, "heartbeat", notifier.deviceEvents[0]["action"])
}

func TestDeviceService_HeartbeatSurvivesPresenceFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stored := domain.Device{ID: uuid.New(), DeviceID: "GW-0001"}
	presence := &mockPresence{err: assert.AnError}
	svc := NewDeviceService(memDeviceStore(&stored), presence, &recordingNotifier{}, clock)

	device, err := svc.Heartbeat(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceStatusOnline, device.Status)
	assert.Equal(t, domain.DeviceStatusOnline, stored.Status, "status change is persisted regardless")
}

func TestDeviceService_GetReportsLapsedPresenceOffline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stored := domain.Device{ID: uuid.New(), DeviceID: "GW-0001", Status: domain.DeviceStatusOnline}
	presence := &mockPresence{}
	svc := NewDeviceService(memDeviceStore(&stored), presence, &recordingNotifier{}, clock)

	// No live presence key: the stored online status is stale.
	device, err := svc.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceStatusOffline, device.Status)
	assert.Equal(t, domain.DeviceStatusOnline, stored.Status, "row is not rewritten on read")

	presence.marked = []uuid.UUID{stored.ID}
	device, err = svc.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceStatusOnline, device.Status)
}

func TestDeviceService_GetKeepsStoredStatusOnPresenceFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stored := domain.Device{ID: uuid.New(), DeviceID: "GW-0001", Status: domain.DeviceStatusOnline}
	svc := NewDeviceService(memDeviceStore(&stored), &mockPresence{err: assert.AnError}, &recordingNotifier{}, clock)

	device, err := svc.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceStatusOnline, device.Status)
}

func TestDeviceService_UpdateRejectsUnknownStatus(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stored := domain.Device{ID: uuid.New(), DeviceID: "GW-0001"}
	svc := NewDeviceService(memDeviceStore(&stored), &mockPresence{}, &recordingNotifier{}, clock)

	bogus := domain.DeviceStatus("rebooting")
	_, err := svc.Update(context.Background(), stored.ID, UpdateDeviceRequest{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDeviceService_Stats(t *testing.T) {
	presence := &mockPresence{marked: []uuid.UUID{uuid.New(), uuid.New()}}
	svc := NewDeviceService(&mockDeviceRepo{
		countByStatusFunc: func(_ context.Context) (map[domain.DeviceStatus]int, error) {
			return map[domain.DeviceStatus]int{
				domain.DeviceStatusOnline:      3,
				domain.DeviceStatusOffline:     2,
				domain.DeviceStatusMaintenance: 1,
			}, nil
		},
	}, presence, &recordingNotifier{}, clockwork.NewFakeClock())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.Online)
	assert.Equal(t, 2, stats.Offline)
	assert.Equal(t, 2, stats.OnlinePresence)
}

func TestDeviceService_StatsSurvivesPresenceFailure(t *testing.T) {
	svc := NewDeviceService(&mockDeviceRepo{
		countByStatusFunc: func(_ context.Context) (map[domain.DeviceStatus]int, error) {
			return map[domain.DeviceStatus]int{domain.DeviceStatusOnline: 1}, nil
		},
	}, &mockPresence{err: assert.AnError}, &recordingNotifier{}, clockwork.NewFakeClock())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Zero(t, stats.OnlinePresence)
}
