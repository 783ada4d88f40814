package persona

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPromptDefault(t *testing.T) {
	prompt := Default().SystemPrompt()

	assert.Contains(t, prompt, "You are Mahatma Gandhi. Your personality: I am Mahatma Gandhi,")
	assert.Contains(t, prompt, "Tone: Respectful, wise, and focused on peaceful solutions.. Please ensure")
	assert.Contains(t, prompt, "Do not respond to questions related to: violence, harmful behavior, inappropriate or offensive questions.")
	assert.NotContains(t, prompt, "%!")
}

func TestSystemPromptLayout(t *testing.T) {
	p := Persona{
		Name:                 "Ada",
		Personality:          "curious",
		SpeakingStyle:        "precise",
		Tone:                 "warm",
		ResponseInstructions: "Answer briefly",
		NonRespondingTopics:  []string{"politics", "gossip"},
	}

	want := "You are Ada. Your personality: curious. Your speaking style: precise. Tone: warm. Answer briefly. Do not respond to questions related to: politics, gossip."
	assert.Equal(t, want, p.SystemPrompt())
	assert.Equal(t, p.SystemPrompt(), p.SystemPrompt())
}

func TestTitleAndPlaceholder(t *testing.T) {
	p := Default()
	assert.Equal(t, "Chat with Mahatma Gandhi", p.Title())
	assert.Equal(t, "Ask Mahatma Gandhi anything.", p.Placeholder())
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	logs := captureLog(t)

	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
	assert.Empty(t, logs.String(), "no path configured is not worth a warning")
}

func TestLoad_MissingFileWarns(t *testing.T) {
	logs := captureLog(t)
	path := filepath.Join(t.TempDir(), "missing.yml")

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
	assert.Contains(t, logs.String(), "warning")
	assert.Contains(t, logs.String(), path)
}

func TestLoad_ValidFile(t *testing.T) {
	content := []byte(`
name: Socrates
personality: A philosopher who questions everything
speaking_style: Answers with questions
tone: Curious and humble
response_instructions: Keep it to two sentences
non_responding_topics:
  - medical advice
  - violence
`)
	path := filepath.Join(t.TempDir(), "persona.yml")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Socrates", p.Name)
	assert.Equal(t, "Answers with questions", p.SpeakingStyle)
	assert.Equal(t, []string{"medical advice", "violence"}, p.NonRespondingTopics)
	assert.Contains(t, p.SystemPrompt(), "Do not respond to questions related to: medical advice, violence.")
}

func TestLoad_MissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yml")
	require.NoError(t, os.WriteFile(path, []byte("tone: calm\n"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unclosed\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
