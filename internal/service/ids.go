package service

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// IDGenerator produces opaque identifiers for recurring series.
type IDGenerator interface {
	NewGroupID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewGroupID() string { return uuid.NewString() }

// UUIDGenerator returns the production group-ID source.
func UUIDGenerator() IDGenerator { return uuidGenerator{} }

// newPinCode returns a 4-digit room access code. Cosmetic, not a security
// boundary.
func newPinCode() string {
	return fmt.Sprintf("%d", 1000+rand.Intn(9000))
}
