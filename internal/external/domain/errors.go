package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a connection or rule ID that is not in the store.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// InactiveConnectionError indicates a sync attempt on a disabled connection.
type InactiveConnectionError struct {
	ConnectionID string
}

func (e *InactiveConnectionError) Error() string {
	return fmt.Sprintf("connection %s is not active", e.ConnectionID)
}

// UnsupportedServiceError indicates a connection whose service type has
// no adapter.
type UnsupportedServiceError struct {
	ServiceType ServiceType
}

func (e *UnsupportedServiceError) Error() string {
	return fmt.Sprintf("unsupported service type: %s", e.ServiceType)
}

// RemoteAPIError indicates a non-2xx response from an external service API.
type RemoteAPIError struct {
	Service    string
	StatusCode int
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
}

// SyncInProgressError indicates that a sync for the connection is already
// running. Concurrent syncs of one connection would race on dedup and
// last_sync_at, so the second caller fails fast instead.
type SyncInProgressError struct {
	ConnectionID string
}

func (e *SyncInProgressError) Error() string {
	return fmt.Sprintf("sync already in progress for connection %s", e.ConnectionID)
}
