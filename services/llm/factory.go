package llm

import (
	"fmt"
	"log/slog"
	"strings"
)

// NewClient builds an LLMClient for the named backend. Supported values
// are "openai" and "ollama"; empty defaults to openai.
func NewClient(backend string) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "openai":
		return NewOpenAIClient()
	case "ollama":
		return NewOllamaClient()
	default:
		slog.Error("Unknown LLM backend requested", "backend", backend)
		return nil, fmt.Errorf("unknown LLM backend %q (want openai or ollama)", backend)
	}
}
