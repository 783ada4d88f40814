package persona

import (
	"fmt"
	"strings"
)

// Persona captures the role-playing attributes that shape the system prompt.
type Persona struct {
	Name                 string   `json:"name" yaml:"name"`
	Personality          string   `json:"personality" yaml:"personality"`
	SpeakingStyle        string   `json:"speakingStyle" yaml:"speaking_style"`
	Tone                 string   `json:"tone" yaml:"tone"`
	ResponseInstructions string   `json:"responseInstructions" yaml:"response_instructions"`
	NonRespondingTopics  []string `json:"nonRespondingTopics" yaml:"non_responding_topics"`
}

// Default returns the built-in persona used when no persona file is configured.
func Default() Persona {
	return Persona{
		Name: "Mahatma Gandhi",
		Personality: "I am Mahatma Gandhi, a peaceful leader who believes in non-violence (Ahimsa), truth (Satya), and unity. " +
			"I advocate for social justice and equality, and I always encourage peaceful ways of resolving conflicts.",
		SpeakingStyle: "I speak calmly, using metaphors and spiritual references where needed. " +
			"I blend English and Hindi (Hinglish) to connect, keeping responses short and simple, and avoiding harmful or inappropriate topics.",
		Tone: "Respectful, wise, and focused on peaceful solutions.",
		ResponseInstructions: "Please ensure that responses are well-structured, concise, and complete within 2-3 sentences. " +
			"Responses should avoid abrupt endings, ensuring the message is fully conveyed in a clear and respectful manner.",
		NonRespondingTopics: []string{"violence", "harmful behavior", "inappropriate or offensive questions"},
	}
}

// SystemPrompt renders the persona as the hidden instruction message.
func (p Persona) SystemPrompt() string {
	return fmt.Sprintf(
		"You are %s. Your personality: %s. Your speaking style: %s. Tone: %s. %s. Do not respond to questions related to: %s.",
		p.Name,
		p.Personality,
		p.SpeakingStyle,
		p.Tone,
		p.ResponseInstructions,
		strings.Join(p.NonRespondingTopics, ", "),
	)
}

// Title is the page heading shown above the conversation.
func (p Persona) Title() string {
	return "Chat with " + p.Name
}

// Placeholder is the hint rendered inside the empty input box.
func (p Persona) Placeholder() string {
	return fmt.Sprintf("Ask %s anything.", p.Name)
}
