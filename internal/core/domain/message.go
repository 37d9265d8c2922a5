package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request emitted by the model to execute a named
// tool with the given arguments. IDs are unique within one assistant turn.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Set only on tool-result messages, linking back to the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func ToolResultMessage(call ToolCall, output string) Message {
	return Message{
		Role:       RoleTool,
		Content:    output,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

// InvoiceContext caches the last successful rag_get_invoice_data output for
// the remainder of one loop invocation. It is never carried across questions.
type InvoiceContext struct {
	RawText   string    `json:"raw_text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Identifier returns the entity identifier embedded in the cached invoice
// text, empty when none is recognizable.
func (c *InvoiceContext) Identifier() string {
	if c == nil {
		return ""
	}
	return ExtractIdentifier(c.RawText)
}

// ConversationState holds one loop invocation's messages in causal order plus
// the cached invoice context. Messages are append-only within an invocation.
type ConversationState struct {
	Messages []Message
	Invoice  *InvoiceContext
}

func NewConversationState(prior []Message, question string) *ConversationState {
	messages := make([]Message, 0, len(prior)+1)
	messages = append(messages, prior...)
	messages = append(messages, UserMessage(question))
	return &ConversationState{Messages: messages}
}

func (s *ConversationState) Append(messages ...Message) {
	s.Messages = append(s.Messages, messages...)
}

// LastUserContent returns the content of the most recent user message.
func (s *ConversationState) LastUserContent() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

func (s *ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
