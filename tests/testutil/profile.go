package testutil

import (
	"context"
	"sync"

	"github.com/erp/records/internal/domain/propagation"
)

// ProfileCall is one recorded SetProfileFields call
type ProfileCall struct {
	ExternalRef string
	Fields      propagation.ProfileUpdate
}

// RecordingProfileClient is an in-memory propagation.ProfileClient
type RecordingProfileClient struct {
	mu     sync.Mutex
	calls  []ProfileCall
	ok     bool
	detail string
	err    error
}

// NewRecordingProfileClient creates a client that accepts every update
func NewRecordingProfileClient() *RecordingProfileClient {
	return &RecordingProfileClient{ok: true}
}

// SetProfileFields records the call and returns the configured response
func (c *RecordingProfileClient) SetProfileFields(_ context.Context, externalRef string, fields propagation.ProfileUpdate) (bool, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make(propagation.ProfileUpdate, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	c.calls = append(c.calls, ProfileCall{ExternalRef: externalRef, Fields: copied})
	return c.ok, c.detail, c.err
}

// Reject makes subsequent calls return ok=false with detail
func (c *RecordingProfileClient) Reject(detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok, c.detail, c.err = false, detail, nil
}

// Fail makes subsequent calls return err
func (c *RecordingProfileClient) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok, c.detail, c.err = false, "", err
}

// Accept restores the default behaviour
func (c *RecordingProfileClient) Accept() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok, c.detail, c.err = true, "", nil
}

// Calls returns a copy of the recorded calls
func (c *RecordingProfileClient) Calls() []ProfileCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ProfileCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// Ensure RecordingProfileClient implements propagation.ProfileClient
var _ propagation.ProfileClient = (*RecordingProfileClient)(nil)
