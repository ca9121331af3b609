// Package models provides the core domain types shared by every subsystem
// of the agent runtime: identifiers, conversation entries, tool specs, job
// results, and the event families published on the event bus.
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// WorkerId is an opaque 128-bit identifier for a Worker.
type WorkerId uuid.UUID

// NewWorkerId generates a fresh random WorkerId.
func NewWorkerId() WorkerId {
	return WorkerId(uuid.New())
}

func (w WorkerId) String() string {
	return uuid.UUID(w).String()
}

// MarshalJSON renders the id as its canonical string form.
func (w WorkerId) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON parses the canonical string form produced by MarshalJSON.
func (w *WorkerId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*w = WorkerId(id)
	return nil
}

// IsZero reports whether the id was never assigned.
func (w WorkerId) IsZero() bool {
	return w == WorkerId(uuid.Nil)
}

// JobId is an opaque 128-bit identifier for a scheduled job.
type JobId uuid.UUID

// NewJobId generates a fresh random JobId.
func NewJobId() JobId {
	return JobId(uuid.New())
}

func (j JobId) String() string {
	return uuid.UUID(j).String()
}

// MarshalJSON renders the id as its canonical string form.
func (j JobId) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.String())
}

// UnmarshalJSON parses the canonical string form produced by MarshalJSON.
func (j *JobId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*j = JobId(id)
	return nil
}

// IsZero reports whether the id was never assigned.
func (j JobId) IsZero() bool {
	return j == JobId(uuid.Nil)
}

// ConversationId is a free-form string chosen by the session. Some
// providers use it for billing or tracing correlation; the core never
// interprets its contents.
type ConversationId string
