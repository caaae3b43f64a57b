package state

import (
	"context"
	"encoding/json"
	"sync"

	"opencodeweb/pkg/client"
	"opencodeweb/pkg/logger"
)

// Listener observes every event after it has been applied.
type Listener func(ev *client.Event)

// Store owns the projection for one user. It is constructed once, applies
// events strictly one at a time, and publishes each resulting State by
// atomic pointer swap. Commands go through the gateway client; the
// optimistic ones synthesize a local event before the server confirms.
type Store struct {
	c *client.Client

	mu    sync.Mutex
	state *State

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int

	// pendingAcks holds identifiers removed optimistically. The later
	// authoritative event for the same identifier is absorbed without
	// reducing and clears the entry.
	pendingAcks map[string]struct{}

	loadingMu       sync.Mutex
	loadingMessages map[string]struct{}
}

// NewStore creates a store backed by the given gateway client.
func NewStore(c *client.Client) *Store {
	return &Store{
		c:               c,
		state:           NewState(),
		listeners:       map[int]Listener{},
		pendingAcks:     map[string]struct{}{},
		loadingMessages: map[string]struct{}{},
	}
}

// Snapshot returns the current state. The returned value is immutable.
func (st *Store) Snapshot() *State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Subscribe registers a listener for applied events and returns its remover.
func (st *Store) Subscribe(fn Listener) func() {
	st.listenerMu.Lock()
	defer st.listenerMu.Unlock()
	id := st.nextID
	st.nextID++
	st.listeners[id] = fn
	return func() {
		st.listenerMu.Lock()
		defer st.listenerMu.Unlock()
		delete(st.listeners, id)
	}
}

// Apply reduces one event into the state and notifies listeners. An
// authoritative reply event whose identifier sits in the pending-ack set
// confirms an optimistic removal that already happened; it is absorbed
// without touching the state and clears the entry.
func (st *Store) Apply(ev *client.Event) {
	st.mu.Lock()
	if id := ackID(ev); id != "" {
		if _, pending := st.pendingAcks[id]; pending {
			delete(st.pendingAcks, id)
			st.mu.Unlock()
			logger.Debug("optimistic_ack_confirmed", "type", ev.Type, "id", id)
			st.notify(ev)
			return
		}
	}
	st.state = Reduce(st.state, ev)
	st.mu.Unlock()
	st.notify(ev)
}

// ackID extracts the reply identifier from permission/question resolution
// events, with the same fallback chain the reducer uses. Empty for every
// other event type.
func ackID(ev *client.Event) string {
	switch ev.Type {
	case "permission.replied", "permission.approved", "permission.denied",
		"question.replied", "question.answered", "question.rejected":
	default:
		return ""
	}
	var meta struct {
		ID         string `json:"id"`
		CallID     string `json:"callID"`
		QuestionID string `json:"questionId"`
		RequestID  string `json:"requestID"`
	}
	if json.Unmarshal(ev.Properties, &meta) != nil {
		return ""
	}
	return firstNonEmpty(meta.ID, meta.CallID, meta.QuestionID, meta.RequestID)
}

func (st *Store) notify(ev *client.Event) {
	st.listenerMu.Lock()
	fns := make([]Listener, 0, len(st.listeners))
	for _, fn := range st.listeners {
		fns = append(fns, fn)
	}
	st.listenerMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// setStatus swaps in a copy of the state carrying the new status.
func (st *Store) setStatus(status Status) {
	st.mu.Lock()
	defer st.mu.Unlock()
	next := st.state.clone()
	next.Status = status
	st.state = next
}

// update runs fn against a cloned state under the apply lock and publishes
// the result. Used for bootstrap installation and message loading, which
// bypass the event reducer.
func (st *Store) update(fn func(next *State)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	next := st.state.clone()
	fn(next)
	st.state = next
}

// applyLocal synthesizes a removal event, reduces it directly and records
// id in the pending-ack set so the authoritative echo is recognized when it
// arrives. The reduction bypasses Apply on purpose: the local event must not
// be absorbed by its own pending entry.
func (st *Store) applyLocal(evType, id string, props interface{}) {
	raw, err := json.Marshal(props)
	if err != nil {
		return
	}
	ev := &client.Event{Type: evType, Properties: raw}
	st.mu.Lock()
	st.state = Reduce(st.state, ev)
	st.pendingAcks[id] = struct{}{}
	st.mu.Unlock()
	st.notify(ev)
}

// CreateSession creates a session upstream and installs it locally without
// waiting for the stream echo. Returns the new session ID.
func (st *Store) CreateSession(ctx context.Context) (string, error) {
	sess, err := st.c.CreateSession(ctx)
	if err != nil {
		logger.Error("create_session_failed", "error", err)
		return "", err
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	st.Apply(&client.Event{Type: "session.created", Properties: raw})
	st.update(func(next *State) {
		next.ActiveSessionID = sess.ID
	})
	return sess.ID, nil
}

// SendPrompt submits a prompt to a session. The resulting messages arrive
// through the event stream.
func (st *Store) SendPrompt(ctx context.Context, sessionID string, req client.PromptRequest) error {
	if err := st.c.SendPrompt(ctx, sessionID, req); err != nil {
		logger.Error("send_prompt_failed", "session_id", sessionID, "error", err)
		return err
	}
	return nil
}

// RespondPermission answers a pending permission and removes it
// optimistically so the projection never shows a stale request.
func (st *Store) RespondPermission(ctx context.Context, permissionID, decision string) error {
	sessionID := st.findPermissionSession(permissionID)
	if sessionID == "" {
		return nil
	}
	if err := st.c.RespondPermission(ctx, sessionID, permissionID, client.PermissionReply{Decision: decision}); err != nil {
		logger.Error("respond_permission_failed", "permission_id", permissionID, "error", err)
		return err
	}
	st.applyLocal("permission.replied", permissionID, map[string]string{"id": permissionID, "sessionID": sessionID})
	return nil
}

// AnswerQuestion answers a pending question, with the same optimistic
// removal as RespondPermission.
func (st *Store) AnswerQuestion(ctx context.Context, questionID string, answers [][]string) error {
	sessionID := st.findQuestionSession(questionID)
	if sessionID == "" {
		return nil
	}
	if err := st.c.AnswerQuestion(ctx, sessionID, questionID, client.QuestionReply{Answers: answers}); err != nil {
		logger.Error("answer_question_failed", "question_id", questionID, "error", err)
		return err
	}
	st.applyLocal("question.replied", questionID, map[string]string{"id": questionID, "sessionID": sessionID})
	return nil
}

func (st *Store) findPermissionSession(id string) string {
	s := st.Snapshot()
	for sid, list := range s.Permissions {
		if _, found := search(list, id, permissionKey); found {
			return sid
		}
	}
	return ""
}

func (st *Store) findQuestionSession(id string) string {
	s := st.Snapshot()
	for sid, list := range s.Questions {
		if _, found := search(list, id, questionKey); found {
			return sid
		}
	}
	return ""
}

// SetActiveSession selects a session and lazily loads its message history.
func (st *Store) SetActiveSession(ctx context.Context, sessionID string) {
	st.update(func(next *State) {
		next.ActiveSessionID = sessionID
	})
	st.LoadMessages(ctx, sessionID)
}

// LoadMessages fetches the message history of a session once. Repeat calls
// for an already-loaded or in-flight session are no-ops.
func (st *Store) LoadMessages(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if len(st.Snapshot().Messages[sessionID]) > 0 {
		return
	}
	st.loadingMu.Lock()
	if _, busy := st.loadingMessages[sessionID]; busy {
		st.loadingMu.Unlock()
		return
	}
	st.loadingMessages[sessionID] = struct{}{}
	st.loadingMu.Unlock()
	defer func() {
		st.loadingMu.Lock()
		delete(st.loadingMessages, sessionID)
		st.loadingMu.Unlock()
	}()

	list, err := st.c.ListMessages(ctx, sessionID)
	if err != nil {
		logger.Warn("load_messages_failed", "session_id", sessionID, "error", err)
		return
	}
	st.update(func(next *State) {
		msgs := make([]client.Message, 0, len(list))
		for _, entry := range list {
			msgs = append(msgs, entry.Info)
			if len(entry.Parts) > 0 {
				next.Parts[entry.Info.ID] = entry.Parts
			}
		}
		next.Messages[sessionID] = msgs
	})
	logger.Debug("messages_loaded", "session_id", sessionID, "count", len(list))
}
