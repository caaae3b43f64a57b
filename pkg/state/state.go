// Package state holds the client-resident projection of the agent backend:
// a normalized store built from a REST bootstrap snapshot plus the live
// event stream. All mutation flows through one serialized reducer step per
// event; readers always see a complete, internally consistent state value.
package state

import (
	"encoding/json"

	"opencodeweb/pkg/client"
)

// Status is the coarse connectivity status of the projection.
type Status string

const (
	StatusLoading  Status = "loading"
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
)

// State is the root aggregate. Collections keyed by identifier are kept
// sorted ascending at all times. A State value is never mutated after it is
// published; reducers build a new value and swap it in.
type State struct {
	Status       Status
	Sessions     []client.Session
	SessionTotal int

	// Messages and Todos are keyed by session ID, Parts by message ID.
	Messages    map[string][]client.Message
	Parts       map[string][]client.Part
	Todos       map[string][]client.Todo
	Permissions map[string][]client.PermissionRequest
	Questions   map[string][]client.QuestionRequest
	Diffs       map[string]json.RawMessage

	ActiveSessionID string
}

// NewState returns an empty projection in the loading status.
func NewState() *State {
	return &State{
		Status:      StatusLoading,
		Messages:    map[string][]client.Message{},
		Parts:       map[string][]client.Part{},
		Todos:       map[string][]client.Todo{},
		Permissions: map[string][]client.PermissionRequest{},
		Questions:   map[string][]client.QuestionRequest{},
		Diffs:       map[string]json.RawMessage{},
	}
}

// clone produces a new State sharing the previous slices and maps one level
// deep. Reducers replace whole list values rather than mutating them, so the
// previous State stays valid for concurrent readers.
func (s *State) clone() *State {
	next := *s
	next.Sessions = append([]client.Session(nil), s.Sessions...)
	next.Messages = copyMap(s.Messages)
	next.Parts = copyMap(s.Parts)
	next.Todos = copyMap(s.Todos)
	next.Permissions = copyMap(s.Permissions)
	next.Questions = copyMap(s.Questions)
	next.Diffs = copyMap(s.Diffs)
	return &next
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SessionByID returns the top-level session with the given identifier.
func (s *State) SessionByID(id string) (client.Session, bool) {
	idx, found := search(s.Sessions, id, func(x client.Session) string { return x.ID })
	if !found {
		return client.Session{}, false
	}
	return s.Sessions[idx], true
}

// cleanupSession drops every dependent collection keyed by sessionID,
// including the part lists of the session's messages.
func (s *State) cleanupSession(sessionID string) {
	for _, m := range s.Messages[sessionID] {
		delete(s.Parts, m.ID)
	}
	delete(s.Messages, sessionID)
	delete(s.Todos, sessionID)
	delete(s.Permissions, sessionID)
	delete(s.Questions, sessionID)
	delete(s.Diffs, sessionID)
}
