package app

// Notifier is the event sink the services publish state changes to. The
// realtime dispatcher implements it; tests substitute a recorder.
type Notifier interface {
	BroadcastTaskUpdate(data map[string]any)
	BroadcastDeviceUpdate(data map[string]any)
	BroadcastCustomerUpdate(data map[string]any)
	NotifyUser(userID string, data map[string]any)
}
