package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrEmailTaken           = errors.New("email already registered")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrInvalidPlanID        = errors.New("plan id is not a canonical uuid")
	ErrRoleNotAllowed       = errors.New("role is not eligible for self-registration")
	ErrMissingPassword      = errors.New("registration payload has no password")
	ErrNoActiveSubscription = errors.New("no active subscription")

	// Persistence-layer errors surfaced by repositories
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
