package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/lekesiz/HECS/internal/domain"
)

// PresenceStore tracks which devices recently sent a heartbeat. Backed by
// TTL keys in Redis; a device whose key expired is considered offline.
type PresenceStore interface {
	MarkOnline(ctx context.Context, deviceID uuid.UUID) error
	Online(ctx context.Context, deviceID uuid.UUID) (bool, error)
	OnlineCount(ctx context.Context) (int, error)
}

// DeviceService manages the device fleet.
type DeviceService struct {
	devices  domain.DeviceRepository
	presence PresenceStore
	notifier Notifier
	clock    clockwork.Clock
}

func NewDeviceService(devices domain.DeviceRepository, presence PresenceStore, notifier Notifier, clock clockwork.Clock) *DeviceService {
	return &DeviceService{
		devices:  devices,
		presence: presence,
		notifier: notifier,
		clock:    clock,
	}
}

// CreateDeviceRequest carries the fields of a new device registration.
type CreateDeviceRequest struct {
	Name       string    `json:"name"`
	DeviceID   string    `json:"device_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	HardwareID *string   `json:"hardware_id"`
	IPAddress  *string   `json:"ip_address"`
	MACAddress *string   `json:"mac_address"`
}

// UpdateDeviceRequest carries a partial device update.
type UpdateDeviceRequest struct {
	Name            *string              `json:"name"`
	Status          *domain.DeviceStatus `json:"status"`
	IPAddress       *string              `json:"ip_address"`
	FirmwareVersion *string              `json:"firmware_version"`
	Metadata        map[string]any       `json:"metadata"`
}

// Create registers a new device, initially offline.
func (s *DeviceService) Create(ctx context.Context, req CreateDeviceRequest) (*domain.Device, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if req.DeviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", domain.ErrValidation)
	}

	if _, err := s.devices.GetByDeviceID(ctx, req.DeviceID); err == nil {
		return nil, domain.ErrDuplicateDevice
	}

	now := s.clock.Now().UTC()
	device := &domain.Device{
		ID:         uuid.New(),
		Name:       req.Name,
		DeviceID:   req.DeviceID,
		HardwareID: req.HardwareID,
		CustomerID: req.CustomerID,
		Status:     domain.DeviceStatusOffline,
		IPAddress:  req.IPAddress,
		MACAddress: req.MACAddress,
		Metadata:   map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	s.notifier.BroadcastDeviceUpdate(deviceEventData(device, "created"))
	return device, nil
}

// Get returns one device. A device stored as online whose presence key has
// lapsed is reported offline; the row itself is only downgraded on the next
// missed-heartbeat sweep, not here.
func (s *DeviceService) Get(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if device.Status == domain.DeviceStatusOnline {
		alive, err := s.presence.Online(ctx, device.ID)
		if err != nil {
			slog.Warn("Failed to check device presence", "device_id", device.ID.String(), "error", err)
		} else if !alive {
			device.Status = domain.DeviceStatusOffline
		}
	}
	return device, nil
}

// List returns devices matching the filter.
func (s *DeviceService) List(ctx context.Context, filter domain.DeviceFilter) ([]*domain.Device, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, filter.Status)
	}
	return s.devices.List(ctx, filter)
}

// Update applies a partial update and broadcasts the change.
func (s *DeviceService) Update(ctx context.Context, id uuid.UUID, req UpdateDeviceRequest) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *req.Status)
		}
		device.Status = *req.Status
	}
	if req.IPAddress != nil {
		device.IPAddress = req.IPAddress
	}
	if req.FirmwareVersion != nil {
		device.FirmwareVersion = req.FirmwareVersion
	}
	if req.Metadata != nil {
		device.Metadata = req.Metadata
	}
	device.UpdatedAt = s.clock.Now().UTC()

	if err := s.devices.Update(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to update device: %w", err)
	}

	s.notifier.BroadcastDeviceUpdate(deviceEventData(device, "updated"))
	return device, nil
}

// Delete removes a device permanently.
func (s *DeviceService) Delete(ctx context.Context, id uuid.UUID) error {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.devices.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	s.notifier.BroadcastDeviceUpdate(deviceEventData(device, "deleted"))
	return nil
}

// Heartbeat marks a device online and refreshes its presence key. Called
// by the device agent on its report-in interval.
func (s *DeviceService) Heartbeat(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	device.Status = domain.DeviceStatusOnline
	device.LastSeen = &now
	device.UpdatedAt = now

	if err := s.devices.Update(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}

	// Presence is advisory; a Redis failure must not fail the heartbeat.
	if err := s.presence.MarkOnline(ctx, device.ID); err != nil {
		slog.Warn("Failed to refresh device presence", "device_id", device.ID.String(), "error", err)
	}

	s.notifier.BroadcastDeviceUpdate(deviceEventData(device, "heartbeat"))
	return device, nil
}

// Stats summarises the fleet per status.
func (s *DeviceService) Stats(ctx context.Context) (*domain.DeviceStats, error) {
	counts, err := s.devices.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}

	stats := &domain.DeviceStats{
		Online:  counts[domain.DeviceStatusOnline],
		Offline: counts[domain.DeviceStatusOffline],
	}
	for _, n := range counts {
		stats.Total += n
	}

	presenceCount, err := s.presence.OnlineCount(ctx)
	if err != nil {
		slog.Warn("Failed to count device presence", "error", err)
	} else {
		stats.OnlinePresence = presenceCount
	}
	return stats, nil
}

func deviceEventData(device *domain.Device, action string) map[string]any {
	data := map[string]any{
		"id":          device.ID.String(),
		"device_id":   device.DeviceID,
		"name":        device.Name,
		"status":      string(device.Status),
		"customer_id": device.CustomerID.String(),
		"action":      action,
	}
	if device.LastSeen != nil {
		data["last_seen"] = device.LastSeen.Format(time.RFC3339)
	}
	return data
}
