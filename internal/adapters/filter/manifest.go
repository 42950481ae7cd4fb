package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// Manifest describes a message whose attachments are stored elsewhere
type Manifest struct {
	Sender      string               `json:"sender"`
	Subject     string               `json:"subject"`
	Attachments []ManifestAttachment `json:"attachments"`
}

// ManifestAttachment is one attachment entry; ID is its storage key
type ManifestAttachment struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// ReadManifest decodes a manifest and checks that every attachment has an id
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Sender == "" {
		return nil, errors.New("manifest has no sender")
	}
	for i, a := range m.Attachments {
		if a.ID == "" {
			return nil, fmt.Errorf("manifest attachment %d has no id", i)
		}
	}
	return &m, nil
}

// Message converts the manifest into a parsed message served by l
func (m *Manifest) Message(l core.ContentLoader) *ParsedMessage {
	attachments := make([]core.AttachmentMetadata, len(m.Attachments))
	for i, a := range m.Attachments {
		attachments[i] = core.AttachmentMetadata{
			ID:        a.ID,
			Filename:  a.Filename,
			MimeType:  inferMimeType(a.MimeType, a.Filename),
			SizeBytes: a.SizeBytes,
		}
	}
	return &ParsedMessage{
		Email: core.EmailContext{
			SenderAddress:   extractEmailAddress(m.Sender),
			Subject:         m.Subject,
			AttachmentCount: len(attachments),
		},
		Attachments: attachments,
		Loader:      l,
	}
}
