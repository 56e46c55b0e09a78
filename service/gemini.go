package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerlens/statementchat/config"
	"google.golang.org/genai"
)

// Generator is the slice of the Gemini API the services depend on. Tests
// substitute a fake.
type Generator interface {
	// GenerateJSON asks the model for a single JSON document matching schema.
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
	// GenerateWithCode asks the model with the code execution tool enabled
	// and returns the assembled answer parts.
	GenerateWithCode(ctx context.Context, prompt string) (*CodeResult, error)
}

// CodeResult is a code-execution response broken into its parts: the prose
// answer, the Python snippets the model ran, and their outputs.
type CodeResult struct {
	Text    string
	Code    []string
	Outputs []string
}

// GeminiClient calls the Gemini API with a fixed model and per-call timeout.
type GeminiClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	timeout         time.Duration
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini client from config. The API key comes
// from the environment via config and is never logged.
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:          client,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		timeout:         time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		MaxOutputTokens:  g.maxOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

func (g *GeminiClient) GenerateWithCode(ctx context.Context, prompt string) (*CodeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.2)),
		MaxOutputTokens: g.maxOutputTokens,
		Tools: []*genai.Tool{
			{CodeExecution: &genai.ToolCodeExecution{}},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	out := &CodeResult{}
	for _, part := range result.Candidates[0].Content.Parts {
		switch {
		case part.Text != "":
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += part.Text
		case part.ExecutableCode != nil:
			out.Code = append(out.Code, part.ExecutableCode.Code)
		case part.CodeExecutionResult != nil:
			out.Outputs = append(out.Outputs, part.CodeExecutionResult.Output)
		}
	}

	if out.Text == "" && len(out.Code) == 0 {
		return nil, fmt.Errorf("gemini returned an empty response")
	}
	return out, nil
}
