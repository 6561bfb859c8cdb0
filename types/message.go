package types

import "time"

// Role represents the role of a conversation message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the append-only unit of a conversation. A message carries at
// most one stage payload; plain user messages carry none.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`

	Stage0 *Stage0Payload `json:"stage0,omitempty"`
	Stage1 *Stage1Payload `json:"stage1,omitempty"`
	Stage2 *Stage2Payload `json:"stage2,omitempty"`
	Stage3 *Stage3Payload `json:"stage3,omitempty"`
	Stage4 *Stage4Payload `json:"stage4,omitempty"`
}

// NewUserMessage creates a user message with the given content.
func NewUserMessage(content string) Message {
	return Message{
		Timestamp: time.Now().UTC(),
		Role:      RoleUser,
		Content:   content,
	}
}

// NewAssistantMessage creates an assistant message with the given content.
func NewAssistantMessage(content string) Message {
	return Message{
		Timestamp: time.Now().UTC(),
		Role:      RoleAssistant,
		Content:   content,
	}
}

// WithStage0 attaches a stage-0 payload to the message.
func (m Message) WithStage0(p *Stage0Payload) Message {
	m.Stage0 = p
	return m
}

// WithStage1 attaches a stage-1 payload to the message.
func (m Message) WithStage1(p *Stage1Payload) Message {
	m.Stage1 = p
	return m
}

// WithStage2 attaches a stage-2 payload to the message.
func (m Message) WithStage2(p *Stage2Payload) Message {
	m.Stage2 = p
	return m
}

// WithStage3 attaches a stage-3 payload to the message.
func (m Message) WithStage3(p *Stage3Payload) Message {
	m.Stage3 = p
	return m
}

// WithStage4 attaches a stage-4 payload to the message.
func (m Message) WithStage4(p *Stage4Payload) Message {
	m.Stage4 = p
	return m
}

// Conversation is the sole source of truth for all pipeline state. Current
// stage inputs are always derived by scanning Messages, never cached as an
// authoritative record.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// ConversationSummary is the listing view of a conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}
