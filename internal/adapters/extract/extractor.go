// Package extract turns attachment bytes into plain text for classification.
// Extraction is best-effort: unsupported or corrupt input yields "".
package extract

import (
	"mime"
	"strings"

	"go.uber.org/zap"
)

// MaxPDFPages is the number of PDF pages read; only the first page is
// classified but later pages help when page one is a cover sheet.
const MaxPDFPages = 3

// Extractor dispatches on MIME type. It implements core.TextExtractor.
type Extractor struct {
	logger   *zap.Logger
	maxPages int
}

// NewExtractor creates a new Extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger, maxPages: MaxPDFPages}
}

// Extract returns the text content of data, or "" when nothing usable is found
func (e *Extractor) Extract(data []byte, mimeType string) string {
	if len(data) == 0 {
		return ""
	}

	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}

	var (
		text   string
		extErr error
	)
	switch mediaType {
	case "text/plain", "text/csv", "text/markdown":
		text = decodeText(data, params["charset"])
	case "text/html", "application/xhtml+xml":
		text, extErr = htmlText(decodeText(data, params["charset"]))
	case "application/pdf":
		text, extErr = pdfText(data, e.maxPages)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		text, extErr = docxText(data)
	case "application/rtf", "text/rtf":
		text = rtfText(data)
	default:
		e.logger.Debug("No extractor for MIME type", zap.String("mime_type", mediaType))
		return ""
	}

	if extErr != nil {
		e.logger.Debug("Text extraction failed",
			zap.String("mime_type", mediaType),
			zap.Int("size", len(data)),
			zap.Error(extErr))
		return ""
	}

	return text
}
