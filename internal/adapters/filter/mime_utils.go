package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mikey/llm-doc-detector/internal/adapters/loader"
	"github.com/mikey/llm-doc-detector/internal/core"
)

// DefaultMaxPartBytes caps the bytes kept in memory per attachment
const DefaultMaxPartBytes = 16 * 1024 * 1024

// extension types missing from some system mime tables
var documentExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".rtf":  "application/rtf",
	".txt":  "text/plain",
	".odt":  "application/vnd.oasis.opendocument.text",
	".html": "text/html",
	".htm":  "text/html",
	".md":   "text/markdown",
	".csv":  "text/csv",
}

// ParsedMessage is the metadata and in-memory content of one message
type ParsedMessage struct {
	Email       core.EmailContext
	Attachments []core.AttachmentMetadata
	Loader      core.ContentLoader
}

// ParseMessage reads a MIME message. Attachment ids are their ordinal
// positions; the From header wins over envelopeFrom when both are present.
func ParseMessage(r io.Reader, envelopeFrom string, maxPartBytes int64) (*ParsedMessage, error) {
	if maxPartBytes <= 0 {
		maxPartBytes = DefaultMaxPartBytes
	}

	mr, err := mail.CreateReader(r)
	if mr == nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	parts := loader.NewMessageLoader(nil)
	parsed := &ParsedMessage{
		Email:  core.EmailContext{SenderAddress: extractEmailAddress(envelopeFrom)},
		Loader: parts,
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		parsed.Email.SenderAddress = from[0].Address
	}
	if subject, err := mr.Header.Subject(); err == nil {
		parsed.Email.Subject = subject
	} else {
		parsed.Email.Subject = mr.Header.Get("Subject")
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}
		if p == nil {
			continue
		}

		filename, contentType, ok := attachmentInfo(p.Header)
		if !ok {
			continue
		}

		data, size, err := readPart(p.Body, maxPartBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %q: %w", filename, err)
		}

		id := strconv.Itoa(len(parsed.Attachments))
		parsed.Attachments = append(parsed.Attachments, core.AttachmentMetadata{
			ID:        id,
			Filename:  filename,
			MimeType:  inferMimeType(contentType, filename),
			SizeBytes: size,
		})
		parts.Add(id, data)
	}

	parsed.Email.AttachmentCount = len(parsed.Attachments)
	return parsed, nil
}

// attachmentInfo reports whether a part is an attachment. Inline parts count
// when they carry a file name and are not message text.
func attachmentInfo(h mail.PartHeader) (string, string, bool) {
	switch h := h.(type) {
	case *mail.AttachmentHeader:
		filename, err := h.Filename()
		if err != nil {
			filename = h.Get("Content-Disposition")
		}
		contentType, _, _ := h.ContentType()
		return filename, contentType, true
	case *mail.InlineHeader:
		contentType, params, _ := h.ContentType()
		name := params["name"]
		if name == "" || strings.HasPrefix(contentType, "text/") || strings.HasPrefix(contentType, "multipart/") {
			return "", "", false
		}
		if decoded, err := new(mime.WordDecoder).DecodeHeader(name); err == nil {
			name = decoded
		}
		return name, contentType, true
	default:
		return "", "", false
	}
}

// readPart keeps at most limit bytes while counting the full decoded size
func readPart(r io.Reader, limit int64) ([]byte, int64, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit))
	if err != nil {
		return nil, 0, err
	}
	rest, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), n + rest, nil
}

// inferMimeType replaces missing or generic content types using the file extension
func inferMimeType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := documentExtensions[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
	}
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

// extractEmailAddress extracts the email address from a string
func extractEmailAddress(s string) string {
	start := strings.LastIndex(s, "<")
	end := strings.LastIndex(s, ">")

	if start >= 0 && end > start {
		return s[start+1 : end]
	}

	return strings.TrimSpace(s)
}
