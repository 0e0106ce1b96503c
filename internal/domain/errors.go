package domain

import "errors"

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrUserNotFound     = errors.New("user not found")

	// ErrRetryLimitExceeded is returned when a retry is requested for a
	// task whose retry count has reached its limit. The task is left
	// unchanged and no event is emitted.
	ErrRetryLimitExceeded = errors.New("task retry limit exceeded")

	// ErrValidation marks rejected input; wrap it with the specifics.
	ErrValidation = errors.New("validation failed")

	ErrInvalidStatus      = errors.New("invalid status")
	ErrDuplicateDevice    = errors.New("device with this device_id already exists")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
