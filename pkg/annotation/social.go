package annotation

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/skinmap/internal/transport"
	"github.com/agentstation/skinmap/pkg/errors"
)

// Social backend defaults.
const (
	DefaultSocialBaseURL = "https://api.openai.com/v1"
	DefaultSocialModel   = "gpt-4o-mini"
)

// SocialAPIKeyNames are the credential names checked for the social backend.
var SocialAPIKeyNames = []string{"OPENAI_API_KEY"}

// SocialConfig configures an OpenAI-compatible chat backend.
type SocialConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	AuthScheme  string // See transport.ForScheme
	Options     []transport.Option
}

// Social estimates community sentiment through chat/completions.
type Social struct {
	client      *transport.Client
	url         string
	model       string
	temperature float64
}

// NewSocial creates a social backend.
func NewSocial(cfg SocialConfig) (*Social, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError("social", "API key is required", errors.ErrCredentialsMissing)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultSocialBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultSocialModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	opts := append([]transport.Option{transport.WithAPIKey(cfg.APIKey)}, cfg.Options...)
	return &Social{
		client:      transport.New("social", transport.ForScheme(cfg.AuthScheme), opts...),
		url:         base + "/chat/completions",
		model:       model,
		temperature: temperature,
	}, nil
}

// Name implements Service.
func (s *Social) Name() string {
	return s.client.Service()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Annotate implements Service. Only the social fields of the estimate are set.
func (s *Social) Annotate(ctx context.Context, req Request) (*Estimate, error) {
	body := chatRequest{
		Model:          s.model,
		Temperature:    s.temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(SocialPrompt, req.Brand, req.Name)},
			{Role: "user", Content: UserPrompt(req)},
		},
	}
	var resp chatResponse
	if err := s.client.PostJSON(ctx, s.url, body, &resp); err != nil {
		if errors.IsAnnotationError(err) {
			return nil, err
		}
		return nil, errors.WrapAnnotation(s.Name(), 0, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, errors.NewAnnotationServiceError(s.Name(), 0, "response missing content")
	}
	return ParseSocial(s.Name(), resp.Choices[0].Message.Content)
}
