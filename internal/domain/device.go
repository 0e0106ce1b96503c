package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeviceStatus is the reachability state of an edge device.
type DeviceStatus string

const (
	DeviceStatusOnline      DeviceStatus = "online"
	DeviceStatusOffline     DeviceStatus = "offline"
	DeviceStatusMaintenance DeviceStatus = "maintenance"
)

// Valid reports whether s is one of the known device statuses.
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusOffline, DeviceStatusMaintenance:
		return true
	}
	return false
}

// Device is an edge node registered with the control plane.
type Device struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	DeviceID        string         `json:"device_id"`
	HardwareID      *string        `json:"hardware_id,omitempty"`
	CustomerID      uuid.UUID      `json:"customer_id"`
	Status          DeviceStatus   `json:"status"`
	IPAddress       *string        `json:"ip_address,omitempty"`
	MACAddress      *string        `json:"mac_address,omitempty"`
	FirmwareVersion *string        `json:"firmware_version,omitempty"`
	LastSeen        *time.Time     `json:"last_seen,omitempty"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DeviceFilter narrows List results.
type DeviceFilter struct {
	Status     DeviceStatus
	CustomerID uuid.UUID
	Offset     int
	Limit      int
}

// DeviceStats summarises devices per status. Online counts the stored
// status; OnlinePresence counts live heartbeat presence keys, which lapse
// faster than the stored status when a device goes silent.
type DeviceStats struct {
	Total          int `json:"total_devices"`
	Online         int `json:"online_devices"`
	Offline        int `json:"offline_devices"`
	OnlinePresence int `json:"online_presence"`
}

// DeviceRepository is the persistence contract for devices.
type DeviceRepository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	List(ctx context.Context, filter DeviceFilter) ([]*Device, error)
	Update(ctx context.Context, device *Device) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[DeviceStatus]int, error)
}
