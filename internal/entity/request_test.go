package entity

import (
	"testing"

	"github.com/google/uuid"
)

func TestCloneProducesFreshLifecycle(t *testing.T) {
	original := &Request{
		ID:       uuid.New(),
		Method:   "POST",
		Protocol: "https",
		Hostname: "api.example.com",
		URI:      "/v1/orders",
		Headers:  []Header{{Name: "Content-Type", Value: "application/json"}},
		Body:     []byte("payload"),
		State:    StateFailed,
	}

	clone := original.Clone()

	if clone.ID == original.ID {
		t.Fatal("clone shares the original id")
	}
	if clone.State != StateCreated {
		t.Fatalf("clone state = %v, want %v", clone.State, StateCreated)
	}
	if clone.FromRequestID == nil || *clone.FromRequestID != original.ID {
		t.Fatalf("lineage pointer = %v, want %v", clone.FromRequestID, original.ID)
	}
	if clone.Method != original.Method || clone.URI != original.URI || clone.Hostname != original.Hostname {
		t.Fatal("payload fields not carried over")
	}
	if clone.RetryAt != nil {
		t.Fatal("clone must not inherit a retry time")
	}
}

func TestCloneDeepCopies(t *testing.T) {
	original := &Request{
		ID:      uuid.New(),
		Headers: []Header{{Name: "X-A", Value: "1"}},
		Body:    []byte("abc"),
	}

	clone := original.Clone()
	clone.Headers[0].Value = "2"
	clone.Body[0] = 'z'

	if original.Headers[0].Value != "1" {
		t.Fatal("clone shares the headers slice")
	}
	if original.Body[0] != 'a' {
		t.Fatal("clone shares the body slice")
	}
}
