package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docbuddy/internal/domain"
)

// GeminiChat drives a Gemini model through a chat session seeded with the
// transcript so far.
type GeminiChat struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// GeminiConfig configures the Gemini chat client.
type GeminiConfig struct {
	APIKeyEnv   string
	Model       string
	Temperature float32
}

func NewGeminiChat(ctx context.Context, cfg GeminiConfig) (*GeminiChat, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-latest"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiChat{client: client, modelName: cfg.Model, temperature: cfg.Temperature}, nil
}

// Chat sends the conversation and returns the assistant reply.
func (c *GeminiChat) Chat(ctx context.Context, system string, messages []domain.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("empty conversation")
	}
	last := messages[len(messages)-1]
	if last.Role != domain.RoleUser {
		return "", fmt.Errorf("last message must be from the user")
	}

	model := c.client.GenerativeModel(c.modelName)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	temp := c.temperature
	model.GenerationConfig = genai.GenerationConfig{Temperature: &temp}

	session := model.StartChat()
	for _, m := range messages[:len(messages)-1] {
		session.History = append(session.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini chat request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini returned a non-text response")
	}
	return b.String(), nil
}

// Close releases the underlying client.
func (c *GeminiChat) Close() error {
	return c.client.Close()
}

func geminiRole(r domain.Role) string {
	if r == domain.RoleAssistant {
		return "model"
	}
	return "user"
}
