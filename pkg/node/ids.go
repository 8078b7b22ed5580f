package node

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// IDGenerator yields 128-bit values that are unique across every node and
// every call without any coordination.
type IDGenerator interface {
	Next() (*big.Int, error)
}

// UUIDGenerator draws random (version 4) UUIDs from crypto/rand and reads
// them as unsigned 128-bit integers.
type UUIDGenerator struct{}

func (UUIDGenerator) Next() (*big.Int, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	return new(big.Int).SetBytes(u[:]), nil
}
