package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// NodeID is a value object identifying a single memory node.
// Value objects are immutable and have no identity beyond their value.
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return NodeID{}, errors.New("node ID must be a valid UUID")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("NodeID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// ThreadID identifies a conversation thread. Unlike NodeID it accepts
// caller-supplied identifiers, since threads are named by the frontend.
// An absent thread and an empty thread are distinct: a zero ThreadID
// means "no thread", and turns without one run threadless.
type ThreadID struct {
	value string
}

// NewThreadID creates a new random ThreadID
func NewThreadID() ThreadID {
	return ThreadID{value: uuid.New().String()}
}

// NewThreadIDFromString creates a ThreadID from a caller-supplied string
func NewThreadIDFromString(id string) (ThreadID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ThreadID{}, errors.New("thread ID cannot be empty")
	}
	return ThreadID{value: id}, nil
}

// String returns the string representation of the ThreadID
func (id ThreadID) String() string {
	return id.value
}

// Equals checks if two ThreadIDs are equal
func (id ThreadID) Equals(other ThreadID) bool {
	return id.value == other.value
}

// IsZero reports whether no thread was supplied
func (id ThreadID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ThreadID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ThreadID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ThreadID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
