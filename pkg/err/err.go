package errprocess

import (
	"errors"
	"fmt"

	"community_messaging_service/pkg/logger"
)

// Request-level error kinds. Only these cross a component boundary;
// advisory store failures are logged and absorbed where they happen.
var (
	// ErrInvalidArgument missing or malformed request field
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound unknown counterpart
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized bearer credential missing or invalid
	ErrUnauthorized = errors.New("unauthorized")
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// InvalidArgument wrap ErrInvalidArgument with detail
func InvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// NotFound wrap ErrNotFound with detail
func NotFound(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}
