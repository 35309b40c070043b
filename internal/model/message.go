package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageRole identifies who produced a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageStatus represents the display state of an assistant message
type MessageStatus string

const (
	StatusNone                 MessageStatus = ""
	StatusThinking             MessageStatus = "thinking"
	StatusAwaitingConfirmation MessageStatus = "awaiting_confirmation"
	StatusAwaitingUserInput    MessageStatus = "awaiting_user_input"
	StatusFailed               MessageStatus = "failed"
)

// RouteType is the backend-assigned category of how a request was handled
type RouteType string

const (
	RouteSystem1API       RouteType = "SYSTEM1_API"
	RouteSystem1RAG       RouteType = "SYSTEM1_RAG"
	RouteSystem2Reasoning RouteType = "SYSTEM2_REASONING"
	RouteSystem2Webbrowse RouteType = "SYSTEM2_WEBBROWSE"
)

// IsDeepReasoning reports whether the route belongs to the deep-reasoning tier.
func (r RouteType) IsDeepReasoning() bool {
	return r == RouteSystem2Reasoning || r == RouteSystem2Webbrowse
}

// Message is one entry in the conversation transcript. Messages are immutable
// once appended; the thinking placeholder is the only message ever removed
// (by ID) rather than kept.
type Message struct {
	ID               string
	Role             MessageRole
	Content          string
	Blocks           []ContentBlock
	Timestamp        time.Time
	Status           MessageStatus
	RouteType        RouteType
	DecisionLogCount int
	HasPlan          bool
	Retryable        bool // failed sends can be resubmitted
}

// NewMessageID returns a sortable message ID.
func NewMessageID() string {
	return ulid.Make().String()
}

// IsPlaceholder reports whether the message is the synthetic thinking entry.
func (m Message) IsPlaceholder() bool {
	return m.Role == RoleAssistant && m.Status == StatusThinking
}
