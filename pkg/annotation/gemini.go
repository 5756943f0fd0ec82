package annotation

import (
	"context"

	"google.golang.org/genai"

	"github.com/agentstation/skinmap/pkg/errors"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiAPIKeyNames are the credential names checked for the Gemini backend.
var GeminiAPIKeyNames = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// contentGenerator is the part of *genai.Models the backend uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini estimates products with a Gemini model.
type Gemini struct {
	models contentGenerator
	model  string
}

// NewGemini creates a Gemini backend on the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError("gemini", "API key is required", errors.ErrCredentialsMissing)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewConfigError("gemini", "failed to create client", err)
	}
	return newGemini(client.Models, cfg.Model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

// Name implements Service.
func (g *Gemini) Name() string {
	return "gemini"
}

// Annotate implements Service.
func (g *Gemini) Annotate(ctx context.Context, req Request) (*Estimate, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(UserPrompt(req)), config)
	if err != nil {
		return nil, errors.WrapAnnotation(g.Name(), statusOf(err), err)
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.NewAnnotationServiceError(g.Name(), 0, "response has no text candidate")
	}
	return ParseEstimate(g.Name(), text)
}

func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
