package sim

import (
	"errors"
	"fmt"
)

// Configuration errors returned (wrapped) by Config.Validate.
var (
	ErrInvalidCapacity    = errors.New("invalid buffer capacity")
	ErrInvalidRate        = errors.New("invalid generation rate")
	ErrMultipleServers    = errors.New("more than one server leaf")
	ErrInvalidServer      = errors.New("invalid server leaf")
	ErrInvalidConnectSize = errors.New("invalid connect size")
	ErrTooFewLeaves       = errors.New("too few leaves")
	ErrInvalidRuntime     = errors.New("invalid run duration")
	ErrInvalidPopulation  = errors.New("invalid bright-state population")
	ErrInvalidNoise       = errors.New("invalid noise parameter")
	ErrUnknownOption      = errors.New("unknown option")
	ErrBackendLimit       = errors.New("backend cannot fuse that many qubits")
)

// ContractViolation is the panic value raised when the engine detects a broken internal
// invariant (a scheduler defect), as opposed to a user configuration error.
type ContractViolation struct {
	Op     string
	Detail string
}

func (c *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", c.Op, c.Detail)
}

func violate(op, format string, args ...any) {
	panic(&ContractViolation{Op: op, Detail: fmt.Sprintf(format, args...)})
}
