package client

import "encoding/json"

// SessionTime carries session lifecycle timestamps.
type SessionTime struct {
	Created  float64  `json:"created,omitempty"`
	Updated  float64  `json:"updated,omitempty"`
	Archived *float64 `json:"archived,omitempty"`
	Deleted  *float64 `json:"deleted,omitempty"`
}

// Session is one conversation with the agent backend. A session carrying a
// non-empty ParentID is a sub-agent session and stays out of the top-level
// session collection.
type Session struct {
	ID        string      `json:"id"`
	Title     string      `json:"title,omitempty"`
	Directory string      `json:"directory,omitempty"`
	ParentID  *string     `json:"parentID,omitempty"`
	Time      SessionTime `json:"time"`
}

// MessageTime carries message lifecycle timestamps.
type MessageTime struct {
	Created float64  `json:"created,omitempty"`
	Updated float64  `json:"updated,omitempty"`
	Deleted *float64 `json:"deleted,omitempty"`
}

// Message is one turn in a session. Ordered within a session by ID.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionID"`
	Role      string      `json:"role"` // "user", "assistant" or "system"
	Time      MessageTime `json:"time"`
}

// Part is one piece of a message payload. The Type discriminator selects
// which optional fields are meaningful.
type Part struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	Type      string `json:"type"` // "text", "tool", "reasoning", "patch", "file"
	Text      string `json:"text,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Output    string `json:"output,omitempty"`
}

// MessageWithParts is the list shape returned by the message endpoint.
type MessageWithParts struct {
	Info  Message `json:"info"`
	Parts []Part  `json:"parts"`
}

// Todo is one tracked task within a session.
type Todo struct {
	ID          string `json:"id"`
	SessionID   string `json:"sessionID"`
	Subject     string `json:"subject"`
	Status      string `json:"status"` // "pending", "in_progress", "completed"
	Description string `json:"description,omitempty"`
}

// PermissionRequest is a pending approval the agent is blocked on. It exists
// only while unanswered.
type PermissionRequest struct {
	ID          string `json:"id"`
	SessionID   string `json:"sessionID"`
	Description string `json:"description,omitempty"`
	Tool        string `json:"tool,omitempty"`
}

// QuestionOption is one selectable answer.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// QuestionInfo is one sub-question inside a question request.
type QuestionInfo struct {
	Question string           `json:"question"`
	Header   string           `json:"header,omitempty"`
	Options  []QuestionOption `json:"options,omitempty"`
	Multiple bool             `json:"multiple,omitempty"`
	Custom   bool             `json:"custom,omitempty"`
}

// QuestionAnchor ties a question to the message and tool call it came from.
type QuestionAnchor struct {
	MessageID string `json:"messageID"`
	CallID    string `json:"callID"`
}

// QuestionRequest is a pending set of questions the agent asked the user.
type QuestionRequest struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionID"`
	Questions []QuestionInfo  `json:"questions,omitempty"`
	Tool      *QuestionAnchor `json:"tool,omitempty"`
}

// Event is one record from the server event stream. Properties stays raw so
// the merge layer can decode it against the existing entity.
type Event struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// ModelRef names the provider and model used for a prompt.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// PromptPart is one input piece of a prompt request.
type PromptPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// PromptRequest is the body sent to the prompt endpoint.
type PromptRequest struct {
	Model ModelRef     `json:"model"`
	Agent string       `json:"agent,omitempty"`
	Parts []PromptPart `json:"parts"`
}

// PermissionReply carries the decision for a pending permission.
type PermissionReply struct {
	Decision string `json:"decision"` // "reject", "once" or "always"
}

// QuestionReply carries the selected answers for a pending question, one
// answer list per sub-question.
type QuestionReply struct {
	Answers [][]string `json:"answers"`
}

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
