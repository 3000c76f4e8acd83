package extraction

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"shelfmark/internal/queue"
	"shelfmark/internal/services/gemini"
	"shelfmark/internal/services/llm"
)

// Image is an uploaded picture. URL is used when the caller supplied a public
// link instead of bytes.
type Image struct {
	MIMEType string
	Data     []byte
	URL      string
}

// DataURL renders the image as a data URL, or returns URL unchanged.
func (img Image) DataURL() string {
	if len(img.Data) == 0 {
		return img.URL
	}
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Audio is an uploaded recording.
type Audio struct {
	Filename string
	Data     []byte
}

// Request is one extraction call. Exactly the field matching Type is used.
type Request struct {
	Type  queue.InputType
	Text  string
	Image *Image
	Audio *Audio
}

// Result carries the extracted candidates and the metadata stored with them.
type Result struct {
	Candidates []queue.Candidate
	Meta       queue.Meta
	Transcript string
}

// Model is a language model able to answer with the books payload.
type Model interface {
	Name() string
	ExtractText(ctx context.Context, prompt string) (string, error)
	ExtractImage(ctx context.Context, instruction string, image Image) (string, error)
}

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// OpenAIModel adapts the chat completion client.
type OpenAIModel struct {
	Client *llm.Client
}

func (m OpenAIModel) Name() string { return "openai" }

func (m OpenAIModel) ExtractText(ctx context.Context, prompt string) (string, error) {
	return m.Client.ExtractText(ctx, prompt)
}

func (m OpenAIModel) ExtractImage(ctx context.Context, instruction string, image Image) (string, error) {
	return m.Client.ExtractImage(ctx, instruction, image.DataURL())
}

// GeminiModel adapts the Gemini client. Gemini needs inline bytes, so
// URL-only images are rejected.
type GeminiModel struct {
	Client *gemini.Client
}

func (m GeminiModel) Name() string { return "gemini" }

func (m GeminiModel) ExtractText(ctx context.Context, prompt string) (string, error) {
	return m.Client.ExtractText(ctx, prompt)
}

func (m GeminiModel) ExtractImage(ctx context.Context, instruction string, image Image) (string, error) {
	if len(image.Data) == 0 {
		return "", errors.New("gemini vision: image bytes required")
	}
	return m.Client.ExtractImage(ctx, instruction, image.MIMEType, image.Data)
}

// ParseDataURL decodes "data:<mime>;base64,<payload>". Plain http(s) URLs are
// returned as URL-only images.
func ParseDataURL(value string) (Image, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return Image{URL: value}, nil
	}
	rest, ok := strings.CutPrefix(value, "data:")
	if !ok {
		return Image{}, errors.New("image must be a data URL or an http(s) URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, errors.New("malformed data URL")
	}
	mimeType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return Image{}, errors.New("data URL must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, errors.New("data URL payload is not valid base64")
	}
	return Image{MIMEType: strings.ToLower(mimeType), Data: data}, nil
}
