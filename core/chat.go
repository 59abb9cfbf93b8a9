package core

import (
	"fmt"
	"strings"
)

// ChatRole is the author of a chat message.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single message in an exchange.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Exchange is an ordered chat history. The last message may be an
// in-progress assistant message that deltas are appended to until the
// stream terminates; everything before it is immutable. Delta application
// is strictly sequential, so Exchange is not safe for concurrent use.
type Exchange struct {
	messages  []ChatMessage
	streaming bool
}

// NewExchange builds an exchange from an existing history.
func NewExchange(history []ChatMessage) *Exchange {
	msgs := make([]ChatMessage, len(history))
	copy(msgs, history)
	return &Exchange{messages: msgs}
}

// Messages returns a copy of the current history, including any
// in-progress assistant message.
func (e *Exchange) Messages() []ChatMessage {
	out := make([]ChatMessage, len(e.messages))
	copy(out, e.messages)
	return out
}

// Append adds a completed message to the history.
func (e *Exchange) Append(msg ChatMessage) error {
	if e.streaming {
		return ErrExchangeStreaming
	}
	e.messages = append(e.messages, msg)
	return nil
}

// BeginAssistant appends an empty assistant message that subsequent deltas
// are folded into.
func (e *Exchange) BeginAssistant() error {
	if e.streaming {
		return ErrExchangeStreaming
	}
	e.messages = append(e.messages, ChatMessage{Role: ChatRoleAssistant})
	e.streaming = true
	return nil
}

// AppendDelta appends a text delta to the in-progress assistant message.
func (e *Exchange) AppendDelta(delta string) error {
	if !e.streaming {
		return fmt.Errorf("no in-progress assistant message")
	}
	e.messages[len(e.messages)-1].Content += delta
	return nil
}

// EndAssistant seals the in-progress assistant message.
func (e *Exchange) EndAssistant() {
	e.streaming = false
}

// Streaming reports whether an assistant message is currently in progress.
func (e *Exchange) Streaming() bool {
	return e.streaming
}

// PatientContext carries the patient details the assistant is primed with.
type PatientContext struct {
	Name      string   `json:"name"`
	BloodType string   `json:"bloodType"`
	Allergies []string `json:"allergies"`
}

// PredictionFactor is a single contributing factor of a risk prediction.
type PredictionFactor struct {
	Factor       string  `json:"factor"`
	Contribution float64 `json:"contribution"`
}

// PredictionContext describes the risk prediction being discussed, if any.
type PredictionContext struct {
	Disease    string             `json:"disease"`
	Confidence float64            `json:"confidence"`
	RiskLevel  string             `json:"riskLevel"`
	Factors    []PredictionFactor `json:"factors"`
	Prevention []string           `json:"prevention"`
}

// SystemPrompt renders the assistant's system prompt from the patient and
// optional prediction context.
func (p PatientContext) SystemPrompt(pred *PredictionContext) string {
	var b strings.Builder

	name := p.Name
	if name == "" {
		name = "Unknown"
	}
	bloodType := p.BloodType
	if bloodType == "" {
		bloodType = "Unknown"
	}
	allergies := "None reported"
	if len(p.Allergies) > 0 {
		allergies = strings.Join(p.Allergies, ", ")
	}

	b.WriteString("You are MediLocker AI, a helpful health assistant. You provide general health information and suggestions.\n\n")
	b.WriteString("IMPORTANT: You are NOT a doctor. Always remind users that your suggestions are not a substitute for professional medical advice.\n\n")
	fmt.Fprintf(&b, "Patient Context:\n- Name: %s\n- Blood Type: %s\n- Known Allergies: %s", name, bloodType, allergies)

	if pred != nil {
		factors := make([]string, len(pred.Factors))
		for i, f := range pred.Factors {
			factors[i] = fmt.Sprintf("%s (%g%%)", f.Factor, f.Contribution)
		}
		fmt.Fprintf(&b, "\n\nCurrent Prediction Being Discussed:\n- Predicted Condition: %s\n- Confidence: %g%%\n- Risk Level: %s\n- Key Contributing Factors: %s\n- Prevention Tips: %s",
			pred.Disease, pred.Confidence, pred.RiskLevel,
			strings.Join(factors, ", "), strings.Join(pred.Prevention, "; "))
		b.WriteString("\n\nWhen asked about this prediction, explain it in simple, plain English that a non-medical person can understand. Use analogies when helpful. Be empathetic and reassuring while being honest about risks. Avoid medical jargon.")
	}

	b.WriteString("\n\nUse the context above to provide personalized but cautious health suggestions. Be empathetic, clear, and concise. If the patient mentions symptoms that could be serious, always recommend seeing a healthcare professional immediately.\n\n")
	b.WriteString("Format your responses with markdown for readability.")

	return b.String()
}
