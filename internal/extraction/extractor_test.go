package extraction_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"shelfmark/internal/config"
	"shelfmark/internal/extraction"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
	"shelfmark/internal/testsupport"
)

type fakeModel struct {
	reply string
	err   error

	prompts      []string
	instructions []string
	images       []extraction.Image
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) ExtractText(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func (m *fakeModel) ExtractImage(_ context.Context, instruction string, image extraction.Image) (string, error) {
	m.instructions = append(m.instructions, instruction)
	m.images = append(m.images, image)
	return m.reply, m.err
}

type fakeTranscriber struct {
	text      string
	err       error
	filenames []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, filename string, audio io.Reader) (string, error) {
	f.filenames = append(f.filenames, filename)
	_, _ = io.ReadAll(audio)
	return f.text, f.err
}

func extractionConfig(t *testing.T) config.Extraction {
	t.Helper()
	cfg := testsupport.NewConfig(t).Extraction
	cfg.TextInstruction = "TEXT-INSTR"
	cfg.AudioInstruction = "AUDIO-INSTR"
	cfg.ImageInstruction = "IMAGE-INSTR"
	return cfg
}

func TestExtractText(t *testing.T) {
	model := &fakeModel{reply: `{"books":[{"title":"Dune","author":"Frank Herbert"},{"title":"Emma","author":"Jane Austen"}]}`}
	extractor := extraction.New(extractionConfig(t), model, nil, nil)

	result, err := extractor.Extract(context.Background(), extraction.Request{Type: queue.InputText, Text: "  I read Dune and Emma  "})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Candidates) != 2 || result.Candidates[1].Author != "Jane Austen" {
		t.Fatalf("unexpected candidates %+v", result.Candidates)
	}
	if want := "TEXT-INSTR\n\nText:\n\"I read Dune and Emma\""; model.prompts[0] != want {
		t.Fatalf("unexpected prompt %q", model.prompts[0])
	}
	if result.Meta.InputType != queue.InputText || result.Meta.SourceNote != "text" || result.Meta.RawResponse != model.reply {
		t.Fatalf("unexpected meta %+v", result.Meta)
	}
}

func TestExtractAudioTranscribesFirst(t *testing.T) {
	model := &fakeModel{reply: `[{"title":"Dune","author":"Frank Herbert"}]`}
	transcriber := &fakeTranscriber{text: " I'm reading Dune "}
	extractor := extraction.New(extractionConfig(t), model, transcriber, nil)

	result, err := extractor.Extract(context.Background(), extraction.Request{
		Type:  queue.InputAudio,
		Audio: &extraction.Audio{Filename: "blob", Data: []byte("opus")},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if result.Transcript != "I'm reading Dune" {
		t.Fatalf("unexpected transcript %q", result.Transcript)
	}
	if !strings.HasPrefix(transcriber.filenames[0], "recording-") || !strings.HasSuffix(transcriber.filenames[0], ".webm") {
		t.Fatalf("expected a substituted webm name, got %q", transcriber.filenames[0])
	}
	if want := "AUDIO-INSTR\n\nText:\n\"I'm reading Dune\""; model.prompts[0] != want {
		t.Fatalf("unexpected prompt %q", model.prompts[0])
	}
	if result.Meta.SourceNote != "audio" || len(result.Candidates) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestExtractImageUsesVision(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"books\":[{\"title\":\"Emma\",\"author\":\"Jane Austen\"}]}\n```"}
	extractor := extraction.New(extractionConfig(t), model, nil, nil)

	result, err := extractor.Extract(context.Background(), extraction.Request{
		Type:  queue.InputImage,
		Image: &extraction.Image{Data: testsupport.PNGBytes(64)},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if model.instructions[0] != "IMAGE-INSTR" {
		t.Fatalf("unexpected instruction %q", model.instructions[0])
	}
	if model.images[0].MIMEType != "image/png" {
		t.Fatalf("expected sniffed png type, got %q", model.images[0].MIMEType)
	}
	if result.Meta.InputType != queue.InputImage || result.Meta.SourceNote != "vision" {
		t.Fatalf("unexpected meta %+v", result.Meta)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].Title != "Emma" {
		t.Fatalf("unexpected candidates %+v", result.Candidates)
	}
}

func TestExtractValidation(t *testing.T) {
	cfg := extractionConfig(t)
	cfg.MaxImageBytes = 16
	model := &fakeModel{reply: `{"books":[]}`}
	extractor := extraction.New(cfg, model, &fakeTranscriber{text: "x"}, nil)

	tests := []struct {
		name string
		req  extraction.Request
	}{
		{"empty text", extraction.Request{Type: queue.InputText, Text: "   "}},
		{"missing audio", extraction.Request{Type: queue.InputAudio}},
		{"missing image", extraction.Request{Type: queue.InputImage}},
		{"oversized image", extraction.Request{Type: queue.InputImage, Image: &extraction.Image{Data: testsupport.PNGBytes(64)}}},
		{"not an image", extraction.Request{Type: queue.InputImage, Image: &extraction.Image{Data: []byte("plain text")}}},
		{"unknown type", extraction.Request{Type: "video", Text: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractor.Extract(context.Background(), tt.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(model.prompts)+len(model.images) != 0 {
		t.Fatal("model must not be called for invalid input")
	}
}

func TestExtractUpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		model  *fakeModel
		marker error
	}{
		{"model error", &fakeModel{err: errors.New("502")}, services.ErrExternalTool},
		{"model timeout", &fakeModel{err: context.DeadlineExceeded}, services.ErrTimeout},
		{"malformed reply", &fakeModel{reply: "I could not find any books, sorry."}, services.ErrExternalTool},
		{"wrong shape", &fakeModel{reply: `{"items":[]}`}, services.ErrExternalTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := extraction.New(extractionConfig(t), tt.model, nil, nil)
			_, err := extractor.Extract(context.Background(), extraction.Request{Text: "Dune"})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestExtractAudioWithoutTranscriber(t *testing.T) {
	extractor := extraction.New(extractionConfig(t), &fakeModel{}, nil, nil)
	_, err := extractor.Extract(context.Background(), extraction.Request{
		Type:  queue.InputAudio,
		Audio: &extraction.Audio{Filename: "a.webm", Data: []byte("x")},
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestExtractTruncatesCandidates(t *testing.T) {
	cfg := extractionConfig(t)
	cfg.MaxCandidates = 1
	model := &fakeModel{reply: `{"books":[{"title":"A","author":"B"},{"title":"C","author":"D"}]}`}
	result, err := extraction.New(cfg, model, nil, nil).Extract(context.Background(), extraction.Request{Text: "x"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("expected truncation to 1, got %d", len(result.Candidates))
	}
}

func TestAudioFilename(t *testing.T) {
	allowed := []string{"webm", "mp4", "m4a", "wav", "ogg"}
	now := time.Unix(1700000000, 0)
	tests := []struct {
		in, want string
	}{
		{"note.M4A", "note.M4A"},
		{"../../etc/voice.ogg", "voice.ogg"},
		{"blob", "recording-1700000000.webm"},
		{"voice.exe", "recording-1700000000.webm"},
		{"", "recording-1700000000.webm"},
	}
	for _, tt := range tests {
		if got := extraction.AudioFilename(tt.in, allowed, now); got != tt.want {
			t.Errorf("AudioFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
