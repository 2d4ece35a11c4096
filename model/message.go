package model

// Roles used in the two-message conversation sent to every provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest is one whole-response question to a provider.
type ChatRequest struct {
	UserText     string
	SystemPrompt string
}

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string
	Content string
}

// Messages returns the system + user pair every backend receives, in order.
func (r ChatRequest) Messages() []Message {
	return []Message{
		{Role: RoleSystem, Content: r.SystemPrompt},
		{Role: RoleUser, Content: r.UserText},
	}
}
