// Package gemini implements suggest.Suggester on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/suggest"
)

const (
	DefaultModel = "gemini-1.5-flash"
	apiVersion   = "v1beta"
)

var _ suggest.Suggester = (*Client)(nil)

// Config selects the model and credentials. Endpoint and HTTPClient are for
// tests and proxies.
type Config struct {
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Client struct {
	models *genai.Models
	model  string
	logger *log.Logger
}

// New builds a client. It does not contact the API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.Endpoint,
			APIVersion: apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		models: client.Models,
		model:  model,
		logger: logger.WithComponent(log.ComponentSuggest),
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

// Suggest sends the prompt and joins the text of every returned part.
func (c *Client) Suggest(ctx context.Context, req suggest.Request) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(suggest.BuildPrompt(req)), nil)
	if err != nil {
		if code, ok := statusCode(err); ok {
			return "", &suggest.StatusError{Code: code, Err: err}
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && strings.TrimSpace(p.Text) != "" {
				parts = append(parts, p.Text)
			}
		}
	}
	if len(parts) == 0 {
		return "", suggest.ErrEmptyResponse
	}

	c.logger.DebugContext(ctx, "Model answered",
		log.FieldModel, c.model,
		log.FieldLanguage, req.Language.String(),
		"candidates", len(resp.Candidates))
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// statusCode extracts the HTTP status of a failed API call.
func statusCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Code != 0 {
		return apiErrPtr.Code, true
	}
	return 0, false
}
