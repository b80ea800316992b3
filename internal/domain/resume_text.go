package domain

import "strings"

// PlaceholderResumeText is stored as resume text when a document cannot
// be read (image-only PDFs, corrupted files, extractor outages). It keeps
// the pipeline fed with something to score and flags the candidate for
// OCR escalation.
const PlaceholderResumeText = "Image-based PDF - text extraction limited or not available"

// IsPlaceholderResumeText reports whether text is an extraction
// placeholder rather than real resume content. Matching is substring
// based because the wording varies by failure mode.
func IsPlaceholderResumeText(text string) bool {
	return strings.Contains(text, "text extraction limited") ||
		strings.Contains(text, "text extraction not available") ||
		strings.Contains(text, "Image-based PDF")
}
