package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiProvider calls the Gemini API.
type geminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func newGeminiProvider(ctx context.Context, apiKey, model string, maxTokens int) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", ErrProviderRequest, err)
	}
	m := client.GenerativeModel(model)
	m.SetMaxOutputTokens(int32(maxTokens)) // #nosec G115 -- bounded by config validation
	return &geminiProvider{client: client, model: m}, nil
}

func (p *geminiProvider) Name() string { return ProviderGemini }

func (p *geminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if IsRateLimit(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("%w: gemini: %v", ErrProviderRequest, err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: gemini", ErrEmptyResponse)
	}
	return b.String(), nil
}

// Close releases the underlying gRPC connection.
func (p *geminiProvider) Close() error {
	return p.client.Close()
}

// Compile-time interface check.
var _ Provider = (*geminiProvider)(nil)
