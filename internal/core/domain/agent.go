package domain

import "time"

// NoAnswerFallback is returned when a finished loop produced no assistant
// message at all.
const NoAnswerFallback = "No se generó ninguna respuesta."

type AgentLimits struct {
	MaxIterations int           `json:"max_iterations"`
	Timeout       time.Duration `json:"timeout"`
	ModelTimeout  time.Duration `json:"model_timeout"`
	ToolTimeout   time.Duration `json:"tool_timeout"`
}

// ToolSpec describes one callable tool to the model: its wire name and a JSON
// Schema object for the arguments.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolEvent struct {
	Tool   string `json:"tool"`
	CallID string `json:"call_id"`
	Status string `json:"status"`
	Output string `json:"output"`
}

type AgentRunResult struct {
	SessionKey   string      `json:"session_key"`
	Answer       string      `json:"answer"`
	Iterations   int         `json:"iterations"`
	ToolsInvoked []string    `json:"tools_invoked,omitempty"`
	ToolEvents   []ToolEvent `json:"tool_events,omitempty"`
}

// TurnRecord is one completed question/answer exchange persisted per session
// key when checkpointing is enabled.
type TurnRecord struct {
	SessionKey string    `json:"session_key"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

// TurnAuditEvent is the best-effort audit trail entry published after every
// answered question.
type TurnAuditEvent struct {
	SessionKey   string    `json:"session_key"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	Iterations   int       `json:"iterations"`
	ToolsInvoked []string  `json:"tools_invoked,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
