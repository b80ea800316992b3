package ai

import (
	"log/slog"
	"strings"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
)

// VisionClient is the slice of the AI client the OCR fallback needs.
type VisionClient interface {
	GenerateVision(ctx domain.Context, prompt string, image []byte, mime string) (string, error)
}

// OCRExtractor recovers text from image-only PDFs with a vision-capable
// model. Used only when primary extraction returned a placeholder.
type OCRExtractor struct {
	client VisionClient
}

// NewOCRExtractor constructs an OCRExtractor.
func NewOCRExtractor(client VisionClient) *OCRExtractor {
	return &OCRExtractor{client: client}
}

const ocrPrompt = `This document is a resume. Transcribe ALL text you can read from it.
After the transcription, on a new line, output a JSON object with any contact
details you spotted:
{"name": "...", "email": "...", "phone": "...", "location": "..."}
Use null for fields you cannot read.`

// ExtractFromPDF runs the vision model over the raw document bytes. The
// returned entities are treated as a secondary source behind the entity
// extractor.
func (o *OCRExtractor) ExtractFromPDF(ctx domain.Context, data []byte) (string, domain.ExtractedEntities, error) {
	lg := observability.LoggerFromContext(ctx)
	raw, err := o.client.GenerateVision(ctx, ocrPrompt, data, "application/pdf")
	if err != nil {
		return "", domain.ExtractedEntities{}, err
	}

	text := raw
	var ents domain.ExtractedEntities
	var parsed entityResponse
	if obj := ExtractJSONObject(raw); obj != "" && ParseJSONObject(obj, &parsed) {
		ents = normalizeEntities(parsed)
		// Keep the transcription free of the trailing JSON blob.
		if i := strings.LastIndex(raw, obj); i > 0 {
			text = strings.TrimSpace(raw[:i])
		}
	}
	lg.Info("ocr fallback extracted text",
		slog.Int("text_len", len(text)),
		slog.Bool("entities_found", ents.Name != "" && ents.Name != domain.UnknownCandidateName))
	return text, ents, nil
}
