package extract

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gradienthealth/studyselect/internal/config"
)

//go:embed prompts/ct_extraction_prompt.txt
var defaultCTPrompt string

//go:embed prompts/pet_extraction_prompt.txt
var defaultPETPrompt string

// Client is the inference-service capability: given a role prompt and one
// report's text, return the raw model output or fail. Implementations must
// be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, prompt, reportText string) (string, error)
}

// OpenAIClient calls the chat-completions API with a JSON response format.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// NewOpenAIClient builds a client from the llm config section.
func NewOpenAIClient(cfg config.LLM) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is not set")
	}
	return &OpenAIClient{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

// Complete issues one extraction request. The prompt carries the role's
// field schema; the report text is the only user content, so report text
// from the other role can never leak into the request.
func (c *OpenAIClient) Complete(ctx context.Context, prompt, reportText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: reportText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// LoadPrompts returns the CT and PET extraction prompts. Files in
// promptsDir override the embedded defaults when present.
func LoadPrompts(promptsDir string) (ctPrompt, petPrompt string, err error) {
	ctPrompt, petPrompt = defaultCTPrompt, defaultPETPrompt
	if promptsDir == "" {
		return ctPrompt, petPrompt, nil
	}
	if data, rerr := os.ReadFile(filepath.Join(promptsDir, "ct_extraction_prompt.txt")); rerr == nil {
		ctPrompt = string(data)
	} else if !os.IsNotExist(rerr) {
		return "", "", fmt.Errorf("read ct prompt: %w", rerr)
	}
	if data, rerr := os.ReadFile(filepath.Join(promptsDir, "pet_extraction_prompt.txt")); rerr == nil {
		petPrompt = string(data)
	} else if !os.IsNotExist(rerr) {
		return "", "", fmt.Errorf("read pet prompt: %w", rerr)
	}
	return ctPrompt, petPrompt, nil
}
