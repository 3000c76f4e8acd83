package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultModel          = "gemini-1.5-flash"
	defaultMaxTokensText  = 1500
	defaultMaxTokensImage = 2000
)

// Config captures the Gemini connection settings.
type Config struct {
	APIKey         string
	Model          string
	MaxTokensText  int
	MaxTokensImage int
}

// Client issues generate-content calls against Gemini.
type Client struct {
	cfg  Config
	opts []option.ClientOption
}

// New returns a Gemini client. Extra client options (endpoint, HTTP client)
// are passed through to genai.NewClient.
func New(cfg Config, opts ...option.ClientOption) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key required")
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokensText <= 0 {
		cfg.MaxTokensText = defaultMaxTokensText
	}
	if cfg.MaxTokensImage <= 0 {
		cfg.MaxTokensImage = defaultMaxTokensImage
	}
	return &Client{cfg: cfg, opts: opts}, nil
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// ExtractText sends the assembled prompt and returns the JSON text reply.
func (c *Client) ExtractText(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("gemini extract: prompt required")
	}
	return c.generate(ctx, c.cfg.MaxTokensText, genai.Text(prompt))
}

// ExtractImage sends the instruction with inline image bytes.
func (c *Client) ExtractImage(ctx context.Context, instruction, mimeType string, data []byte) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", errors.New("gemini vision: instruction required")
	}
	if len(data) == 0 {
		return "", errors.New("gemini vision: image required")
	}
	return c.generate(ctx, c.cfg.MaxTokensImage, genai.Text(instruction), genai.Blob{MIMEType: mimeType, Data: data})
}

func (c *Client) generate(ctx context.Context, maxTokens int, parts ...genai.Part) (string, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(c.cfg.APIKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.cfg.Model)
	configureModel(model, maxTokens)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return ResponseText(resp)
}

func configureModel(model *genai.GenerativeModel, maxTokens int) {
	model.SetTemperature(0)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = BooksSchema()
}

// BooksSchema mirrors {"books":[{"title","author"}]}.
func BooksSchema() *genai.Schema {
	return &genai.Schema{
		Type:     genai.TypeObject,
		Required: []string{"books"},
		Properties: map[string]*genai.Schema{
			"books": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:     genai.TypeObject,
					Required: []string{"title", "author"},
					Properties: map[string]*genai.Schema{
						"title":  {Type: genai.TypeString},
						"author": {Type: genai.TypeString},
					},
				},
			},
		},
	}
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini (finish_reason=%s)", candidate.FinishReason)
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("unexpected response format from Gemini")
	}
	return b.String(), nil
}
