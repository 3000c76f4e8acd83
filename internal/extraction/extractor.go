package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"shelfmark/internal/config"
	"shelfmark/internal/logging"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
)

const sourceNoteVision = "vision"

// Extractor routes a Request to the model by modality.
type Extractor struct {
	cfg         config.Extraction
	model       Model
	transcriber Transcriber
	logger      *slog.Logger
	now         func() time.Time
}

// New builds an Extractor. transcriber may be nil when audio input is not
// offered.
func New(cfg config.Extraction, model Model, transcriber Transcriber, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:         cfg,
		model:       model,
		transcriber: transcriber,
		logger:      logging.NewComponentLogger(logger, "extraction"),
		now:         time.Now,
	}
}

// Extract runs the request through the model and parses the reply.
func (e *Extractor) Extract(ctx context.Context, req Request) (Result, error) {
	if e.model == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "extraction", "extract", "no model configured", nil)
	}
	inputType := req.Type
	if inputType == "" {
		inputType = queue.InputText
	}

	var (
		content    string
		transcript string
		err        error
	)
	switch inputType {
	case queue.InputText:
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return Result{}, services.Wrap(services.ErrValidation, "extraction", "text", "text must not be empty", nil)
		}
		content, err = e.model.ExtractText(ctx, BuildPrompt(e.cfg.TextInstruction, text))
	case queue.InputAudio:
		transcript, err = e.transcribe(ctx, req.Audio)
		if err != nil {
			return Result{}, err
		}
		content, err = e.model.ExtractText(ctx, BuildPrompt(e.cfg.AudioInstruction, transcript))
	case queue.InputImage:
		if err := e.validateImage(req.Image); err != nil {
			return Result{}, err
		}
		content, err = e.model.ExtractImage(ctx, e.cfg.ImageInstruction, *req.Image)
	default:
		return Result{}, services.Wrap(services.ErrValidation, "extraction", "extract", fmt.Sprintf("unsupported input type %q", inputType), nil)
	}
	if err != nil {
		return Result{}, upstreamError(e.model.Name(), string(inputType), err)
	}

	candidates, err := ParseBooks(content)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "model reply rejected", "extraction_reply_invalid",
			logging.String(logging.FieldProvider, e.model.Name()),
			logging.String("input_type", string(inputType)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the configured instruction and model"),
			logging.String(logging.FieldImpact, "nothing was queued for this input"),
		)
		return Result{}, services.Wrap(services.ErrExternalTool, "extraction", string(inputType), "model returned malformed output", err)
	}
	if limit := e.cfg.MaxCandidates; limit > 0 && len(candidates) > limit {
		e.logger.Info("truncating extracted candidates",
			logging.Int("extracted", len(candidates)),
			logging.Int("limit", limit))
		candidates = candidates[:limit]
	}

	sourceNote := string(inputType)
	if inputType == queue.InputImage {
		sourceNote = sourceNoteVision
	}
	logging.WithContext(ctx, e.logger).Debug("extraction complete",
		logging.String(logging.FieldProvider, e.model.Name()),
		logging.String("input_type", string(inputType)),
		logging.Int("candidates", len(candidates)))

	return Result{
		Candidates: candidates,
		Meta: queue.Meta{
			InputType:   inputType,
			SourceNote:  sourceNote,
			RawResponse: content,
		},
		Transcript: transcript,
	}, nil
}

func (e *Extractor) transcribe(ctx context.Context, audio *Audio) (string, error) {
	if e.transcriber == nil {
		return "", services.Wrap(services.ErrConfiguration, "extraction", "audio", "no transcription service configured", nil)
	}
	if audio == nil || len(audio.Data) == 0 {
		return "", services.Wrap(services.ErrValidation, "extraction", "audio", "no audio file received", nil)
	}
	if limit := e.cfg.MaxAudioBytes; limit > 0 && int64(len(audio.Data)) > limit {
		return "", services.Wrap(services.ErrValidation, "extraction", "audio", fmt.Sprintf("audio exceeds %d bytes", limit), nil)
	}
	filename := AudioFilename(audio.Filename, e.cfg.AllowedAudioTypes, e.now())
	text, err := e.transcriber.Transcribe(ctx, filename, bytes.NewReader(audio.Data))
	if err != nil {
		return "", upstreamError("transcription", "audio", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrExternalTool, "extraction", "audio", "transcription was empty", nil)
	}
	return text, nil
}

func (e *Extractor) validateImage(img *Image) error {
	if img == nil || (len(img.Data) == 0 && strings.TrimSpace(img.URL) == "") {
		return services.Wrap(services.ErrValidation, "extraction", "image", "no image data received", nil)
	}
	if len(img.Data) == 0 {
		return nil
	}
	if limit := e.cfg.MaxImageBytes; limit > 0 && int64(len(img.Data)) > limit {
		return services.Wrap(services.ErrValidation, "extraction", "image", fmt.Sprintf("image exceeds %d bytes", limit), nil)
	}
	if img.MIMEType == "" {
		img.MIMEType = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(img.MIMEType, "image/") {
		return services.Wrap(services.ErrValidation, "extraction", "image", fmt.Sprintf("unsupported image type %q", img.MIMEType), nil)
	}
	return nil
}

// AudioFilename keeps name when its extension is allowed and otherwise
// substitutes a timestamped .webm name, which is what browsers record.
func AudioFilename(name string, allowed []string, now time.Time) string {
	base := filepath.Base(strings.TrimSpace(name))
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")
	if ext != "" && slices.Contains(allowed, ext) {
		return base
	}
	return "recording-" + strconv.FormatInt(now.Unix(), 10) + ".webm"
}

func upstreamError(provider, op string, err error) error {
	return services.Wrap(services.UpstreamMarker(err), "extraction", op, provider+" request failed", err)
}
