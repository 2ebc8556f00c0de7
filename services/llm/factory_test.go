package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_UnknownBackend(t *testing.T) {
	client, err := NewClient("bedrock")
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM backend")
}

func TestNewClient_Ollama(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434/")
	t.Setenv("OLLAMA_MODEL", "llama3.1")

	client, err := NewClient("ollama")
	require.NoError(t, err)
	require.NotNil(t, client)

	ollama, ok := client.(*OllamaClient)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", ollama.baseURL)
}

func TestNewClient_OpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	client, err := NewClient("openai")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)
}
