package escalation

import "errors"

var (
	// ErrRepositoryRequired is returned when creating a Workflow without a store.
	ErrRepositoryRequired = errors.New("escalation repository is required")

	// ErrFanoutRequired is returned when creating a Workflow without a fan-out.
	ErrFanoutRequired = errors.New("broadcast fanout is required")

	// ErrTransportRequired is returned when creating a Workflow without a transport.
	ErrTransportRequired = errors.New("transport is required")
)
