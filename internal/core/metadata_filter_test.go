package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMetadata(t *testing.T) {
	p := newTestPolicy(t)
	human := EmailContext{SenderAddress: "jane@gmail.com", Subject: "Applying", AttachmentCount: 1}
	pdf := AttachmentMetadata{ID: "a", Filename: "cv.pdf", MimeType: "application/pdf", SizeBytes: 50 << 10}

	t.Run("no attachments", func(t *testing.T) {
		d := FilterMetadata(human, nil, p)
		assert.False(t, d.ShouldProcess)
		assert.Equal(t, "no attachments", d.Reason)
		assert.Empty(t, d.Survivors)
	})

	t.Run("automated sender", func(t *testing.T) {
		email := human
		email.SenderAddress = "NoReply@jobs.example.com"
		d := FilterMetadata(email, []AttachmentMetadata{pdf}, p)
		assert.False(t, d.ShouldProcess)
		assert.Contains(t, d.Reason, "automated sender")
	})

	t.Run("negative subject keyword is case-insensitive", func(t *testing.T) {
		email := human
		email.Subject = "Your monthly NEWSLETTER"
		d := FilterMetadata(email, []AttachmentMetadata{pdf}, p)
		assert.False(t, d.ShouldProcess)
		assert.Contains(t, d.Reason, "newsletter")
	})

	t.Run("drops disallowed attachments", func(t *testing.T) {
		png := AttachmentMetadata{ID: "b", Filename: "photo.png", MimeType: "image/png", SizeBytes: 50 << 10}
		tiny := AttachmentMetadata{ID: "c", Filename: "x.pdf", MimeType: "application/pdf", SizeBytes: 10}
		huge := AttachmentMetadata{ID: "d", Filename: "y.pdf", MimeType: "application/pdf", SizeBytes: 11 << 20}

		d := FilterMetadata(human, []AttachmentMetadata{png, pdf, tiny, huge}, p)
		require.True(t, d.ShouldProcess)
		assert.Equal(t, []AttachmentMetadata{pdf}, d.Survivors)
		assert.Len(t, d.Dropped, 3)
		assert.Contains(t, d.Dropped["b"], "mime type")
		assert.Contains(t, d.Dropped["c"], "size")
		assert.Contains(t, d.Dropped["d"], "size")
	})

	t.Run("rejects when nothing survives", func(t *testing.T) {
		png := AttachmentMetadata{ID: "b", Filename: "photo.png", MimeType: "image/png", SizeBytes: 50 << 10}
		d := FilterMetadata(human, []AttachmentMetadata{png}, p)
		assert.False(t, d.ShouldProcess)
		assert.Empty(t, d.Survivors)
	})

	t.Run("size bounds are inclusive", func(t *testing.T) {
		low := pdf
		low.SizeBytes = p.SizeRange.Min
		high := pdf
		high.SizeBytes = p.SizeRange.Max

		ok, _ := AdmitAttachment(low, p)
		assert.True(t, ok)
		ok, _ = AdmitAttachment(high, p)
		assert.True(t, ok)
	})
}
