package cart

import "github.com/google/uuid"

// IDGenerator produces line item ids.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }

// TimeOrderedIDs generates UUIDv7 values: a millisecond timestamp followed by random bits.
type TimeOrderedIDs struct{}

func (TimeOrderedIDs) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
