package state

import (
	"encoding/json"

	"opencodeweb/pkg/client"
	"opencodeweb/pkg/logger"
)

// handler applies one event's properties to an already-cloned state.
type handler func(next *State, props json.RawMessage)

// handlers is the total dispatch table over the event type vocabulary.
// A nil handler is a deliberate no-op for types the projection does not
// track. Types absent from the table are logged and ignored.
var handlers = map[string]handler{
	"session.created": applySessionCreated,
	"session.updated": applySessionUpdated,
	"session.deleted": applySessionDeleted,
	"session.diff":    applySessionDiff,

	"message.created":         applyMessageUpserted,
	"message.updated":         applyMessageUpserted,
	"session.message_added":   applyMessageUpserted,
	"session.message_updated": applyMessageUpserted,
	"message.removed":         applyMessageRemoved,

	"message.part.added":   applyPartUpserted,
	"message.part.updated": applyPartUpserted,
	"message.part.removed": applyPartRemoved,

	"permission.asked":    applyPermissionAsked,
	"permission.replied":  applyPermissionResolved,
	"permission.approved": applyPermissionResolved,
	"permission.denied":   applyPermissionResolved,

	"question.asked":    applyQuestionAsked,
	"question.replied":  applyQuestionResolved,
	"question.answered": applyQuestionResolved,
	"question.rejected": applyQuestionResolved,

	"todo.updated":        applyTodoReplaced,
	"todo.created":        applyTodoReplaced,
	"todo.item_added":     applyTodoReplaced,
	"todo.item_completed": applyTodoReplaced,
	"todo.deleted":        applyTodoReplaced,

	"server.instance.disposed": applyInstanceDisposed,

	"session.status":     nil,
	"lsp.updated":        nil,
	"vcs.branch.updated": nil,
	"worktree.ready":     nil,
	"worktree.failed":    nil,
}

// Reduce applies one event and returns the resulting state. The input state
// is never mutated; unchanged states are returned as-is. Replaying the same
// event twice yields the same state as replaying it once.
func Reduce(s *State, ev *client.Event) *State {
	h, known := handlers[ev.Type]
	if !known {
		logger.Debug("event_ignored", "type", ev.Type)
		return s
	}
	if h == nil {
		return s
	}
	next := s.clone()
	h(next, ev.Properties)
	return next
}

// entityRaw unwraps the {"info": ...} envelope some event types carry.
func entityRaw(props json.RawMessage) json.RawMessage {
	var wrap struct {
		Info json.RawMessage `json:"info"`
	}
	if err := json.Unmarshal(props, &wrap); err == nil && len(wrap.Info) > 0 && string(wrap.Info) != "null" {
		return wrap.Info
	}
	return props
}

// sessionMeta is the subset of session fields the reducer branches on.
type sessionMeta struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parentID"`
	Time     struct {
		Archived *float64 `json:"archived"`
	} `json:"time"`
}

func sessionKey(s client.Session) string              { return s.ID }
func messageKey(m client.Message) string              { return m.ID }
func partKey(p client.Part) string                    { return p.ID }
func permissionKey(p client.PermissionRequest) string { return p.ID }
func questionKey(q client.QuestionRequest) string     { return q.ID }

func applySessionCreated(next *State, props json.RawMessage) {
	raw := entityRaw(props)
	var meta sessionMeta
	if json.Unmarshal(raw, &meta) != nil || meta.ID == "" {
		return
	}
	// child sessions never enter the top-level collection
	if meta.ParentID != nil && *meta.ParentID != "" {
		return
	}
	idx, found := search(next.Sessions, meta.ID, sessionKey)
	if found {
		next.Sessions[idx] = mergeJSON(next.Sessions[idx], raw)
		return
	}
	var sess client.Session
	if json.Unmarshal(raw, &sess) != nil {
		return
	}
	next.Sessions = insertAt(next.Sessions, idx, sess)
	next.SessionTotal++
	if next.ActiveSessionID == "" {
		next.ActiveSessionID = meta.ID
	}
}

func applySessionUpdated(next *State, props json.RawMessage) {
	raw := entityRaw(props)
	var meta sessionMeta
	if json.Unmarshal(raw, &meta) != nil || meta.ID == "" {
		return
	}
	// a zero timestamp means not archived, same as an absent field
	if meta.Time.Archived != nil && *meta.Time.Archived != 0 {
		removeSession(next, meta.ID)
		return
	}
	if meta.ParentID != nil && *meta.ParentID != "" {
		// a session turning into a child session leaves the top-level list
		if idx, found := search(next.Sessions, meta.ID, sessionKey); found {
			next.Sessions = removeAt(next.Sessions, idx)
			if next.SessionTotal > 0 {
				next.SessionTotal--
			}
		}
		return
	}
	next.Sessions = upsertRaw(next.Sessions, meta.ID, raw, sessionKey)
}

func applySessionDeleted(next *State, props json.RawMessage) {
	var meta sessionMeta
	if json.Unmarshal(entityRaw(props), &meta) != nil || meta.ID == "" {
		return
	}
	removeSession(next, meta.ID)
	if next.ActiveSessionID == meta.ID {
		next.ActiveSessionID = ""
	}
}

// removeSession drops one session and cascades over every dependent
// collection keyed by it.
func removeSession(next *State, sessionID string) {
	if idx, found := search(next.Sessions, sessionID, sessionKey); found {
		next.Sessions = removeAt(next.Sessions, idx)
		if next.SessionTotal > 0 {
			next.SessionTotal--
		}
	}
	next.cleanupSession(sessionID)
	if next.ActiveSessionID == sessionID {
		next.ActiveSessionID = ""
	}
}

func applySessionDiff(next *State, props json.RawMessage) {
	var meta struct {
		SessionID string          `json:"sessionID"`
		Diff      json.RawMessage `json:"diff"`
	}
	if json.Unmarshal(props, &meta) != nil || meta.SessionID == "" {
		return
	}
	next.Diffs[meta.SessionID] = meta.Diff
}

func applyMessageUpserted(next *State, props json.RawMessage) {
	raw := entityRaw(props)
	var meta struct {
		ID        string `json:"id"`
		SessionID string `json:"sessionID"`
	}
	if json.Unmarshal(raw, &meta) != nil || meta.ID == "" || meta.SessionID == "" {
		return
	}
	next.Messages[meta.SessionID] = upsertRaw(next.Messages[meta.SessionID], meta.ID, raw, messageKey)
}

func applyMessageRemoved(next *State, props json.RawMessage) {
	var meta struct {
		SessionID string `json:"sessionID"`
		MessageID string `json:"messageID"`
	}
	if json.Unmarshal(props, &meta) != nil || meta.SessionID == "" || meta.MessageID == "" {
		return
	}
	if list, removed := removeByKey(next.Messages[meta.SessionID], meta.MessageID, messageKey); removed {
		next.Messages[meta.SessionID] = list
	}
	delete(next.Parts, meta.MessageID)
}

func applyPartUpserted(next *State, props json.RawMessage) {
	raw := props
	var wrap struct {
		Part json.RawMessage `json:"part"`
	}
	if err := json.Unmarshal(props, &wrap); err == nil && len(wrap.Part) > 0 && string(wrap.Part) != "null" {
		raw = wrap.Part
	}
	var meta struct {
		ID        string `json:"id"`
		MessageID string `json:"messageID"`
	}
	if json.Unmarshal(raw, &meta) != nil || meta.ID == "" || meta.MessageID == "" {
		return
	}
	next.Parts[meta.MessageID] = upsertRaw(next.Parts[meta.MessageID], meta.ID, raw, partKey)
}

func applyPartRemoved(next *State, props json.RawMessage) {
	var meta struct {
		MessageID string `json:"messageID"`
		PartID    string `json:"partID"`
	}
	if json.Unmarshal(props, &meta) != nil || meta.MessageID == "" || meta.PartID == "" {
		return
	}
	list, removed := removeByKey(next.Parts[meta.MessageID], meta.PartID, partKey)
	if !removed {
		return
	}
	if len(list) == 0 {
		delete(next.Parts, meta.MessageID)
		return
	}
	next.Parts[meta.MessageID] = list
}

func applyPermissionAsked(next *State, props json.RawMessage) {
	var meta struct {
		ID        string `json:"id"`
		SessionID string `json:"sessionID"`
	}
	if json.Unmarshal(props, &meta) != nil || meta.ID == "" || meta.SessionID == "" {
		return
	}
	next.Permissions[meta.SessionID] = upsertRaw(next.Permissions[meta.SessionID], meta.ID, props, permissionKey)
}

func applyPermissionResolved(next *State, props json.RawMessage) {
	var meta struct {
		ID        string `json:"id"`
		CallID    string `json:"callID"`
		RequestID string `json:"requestID"`
		SessionID string `json:"sessionID"`
	}
	if json.Unmarshal(props, &meta) != nil {
		return
	}
	id := firstNonEmpty(meta.ID, meta.CallID, meta.RequestID)
	if id == "" || meta.SessionID == "" {
		return
	}
	if list, removed := removeByKey(next.Permissions[meta.SessionID], id, permissionKey); removed {
		next.Permissions[meta.SessionID] = list
	}
}

func applyQuestionAsked(next *State, props json.RawMessage) {
	var meta struct {
		ID        string `json:"id"`
		SessionID string `json:"sessionID"`
	}
	if json.Unmarshal(props, &meta) != nil || meta.ID == "" || meta.SessionID == "" {
		return
	}
	next.Questions[meta.SessionID] = upsertRaw(next.Questions[meta.SessionID], meta.ID, props, questionKey)
}

func applyQuestionResolved(next *State, props json.RawMessage) {
	var meta struct {
		ID         string `json:"id"`
		QuestionID string `json:"questionId"`
		RequestID  string `json:"requestID"`
		SessionID  string `json:"sessionID"`
	}
	if json.Unmarshal(props, &meta) != nil {
		return
	}
	id := firstNonEmpty(meta.ID, meta.QuestionID, meta.RequestID)
	if id == "" {
		return
	}
	if meta.SessionID != "" {
		if list, removed := removeByKey(next.Questions[meta.SessionID], id, questionKey); removed {
			next.Questions[meta.SessionID] = list
		}
		return
	}
	// Some backends omit the session identifier on reply events. Fall back
	// to scanning every session's question list; first match wins. Not
	// authoritative under duplicate identifiers across sessions.
	for sid, list := range next.Questions {
		if out, removed := removeByKey(list, id, questionKey); removed {
			next.Questions[sid] = out
			logger.Debug("question_removed_by_scan", "session_id", sid, "question_id", id)
			return
		}
	}
}

func applyTodoReplaced(next *State, props json.RawMessage) {
	var meta struct {
		SessionID  string        `json:"sessionID"`
		SessionIDL string        `json:"sessionId"`
		Todos      []client.Todo `json:"todos"`
		Items      []client.Todo `json:"items"`
	}
	if json.Unmarshal(props, &meta) != nil {
		return
	}
	sid := firstNonEmpty(meta.SessionID, meta.SessionIDL)
	items := meta.Todos
	if items == nil {
		items = meta.Items
	}
	if sid == "" || items == nil {
		return
	}
	// todo events carry the full list; replace wholesale
	next.Todos[sid] = items
}

func applyInstanceDisposed(next *State, props json.RawMessage) {
	// upstream restarted; entities stay but the projection is stale
	next.Status = StatusPartial
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
