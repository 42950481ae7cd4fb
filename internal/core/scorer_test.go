package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreAttachment(t *testing.T) {
	p := newTestPolicy(t)

	tests := []struct {
		name       string
		email      EmailContext
		attachment AttachmentMetadata
		want       ScoreBreakdown
	}{
		{
			name:       "strong résumé from personal mailbox",
			email:      EmailContext{SenderAddress: "jane@gmail.com", Subject: "Applying for the role"},
			attachment: AttachmentMetadata{Filename: "Jane_Résumé.pdf", MimeType: "application/pdf", SizeBytes: 250 << 10},
			want:       ScoreBreakdown{FilenameScore: 40, SubjectScore: 30, PropertiesScore: 20, SenderScore: 10, Total: 100},
		},
		{
			name:       "defaults from corporate sender",
			email:      EmailContext{SenderAddress: "hr@acme.io", Subject: "hello"},
			attachment: AttachmentMetadata{Filename: "notes.pdf", MimeType: "application/pdf", SizeBytes: 2 << 10},
			want:       ScoreBreakdown{FilenameScore: 8, SubjectScore: 5, PropertiesScore: 12, SenderScore: 5, Total: 30},
		},
		{
			name:       "automated sender and disallowed type",
			email:      EmailContext{SenderAddress: "noreply@acme.io", Subject: "Role update"},
			attachment: AttachmentMetadata{Filename: "invoice.png", MimeType: "image/png", SizeBytes: 100 << 10},
			want:       ScoreBreakdown{FilenameScore: 0, SubjectScore: 20, PropertiesScore: 8, SenderScore: 0, Total: 28},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreAttachment(tt.email, tt.attachment, p))
		})
	}
}

func TestScoreAttachmentFirstMatchWins(t *testing.T) {
	p := newTestPolicy(t)
	email := EmailContext{SenderAddress: "hr@acme.io", Subject: "x"}

	// Matches both the 40 and the 0 group; the earlier row wins.
	b := ScoreAttachment(email, AttachmentMetadata{Filename: "resume-invoice.pdf"}, p)
	assert.Equal(t, 40, b.FilenameScore)

	// Matches both the 8 and the 0 group.
	b = ScoreAttachment(email, AttachmentMetadata{Filename: "invoice document.pdf"}, p)
	assert.Equal(t, 8, b.FilenameScore)

	b = ScoreAttachment(email, AttachmentMetadata{Filename: "invoice.pdf"}, p)
	assert.Equal(t, 0, b.FilenameScore)
}

func TestScoreAttachmentRangesAndDeterminism(t *testing.T) {
	p := newTestPolicy(t, func(c *PolicyConfig) {
		c.FilenamePatternTable = append([]PatternRuleConfig{{Name: "max", Pattern: "max", Score: 100}}, c.FilenamePatternTable...)
		c.SubjectPatternTable = append([]PatternRuleConfig{{Name: "max", Pattern: "max", Score: 100}}, c.SubjectPatternTable...)
	})

	senders := []string{"jane@gmail.com", "noreply@acme.io", "hr@acme.io", "", "broken"}
	subjects := []string{"", "max", "applying", "Role", "résumé"}
	filenames := []string{"", "max.pdf", "resume.pdf", "candidate.doc", "invoice.pdf", "Ωmega"}
	sizes := []int64{0, 1024, 5 << 10, 3 << 20, 1 << 40}

	for _, sender := range senders {
		for _, subject := range subjects {
			for _, filename := range filenames {
				for _, size := range sizes {
					email := EmailContext{SenderAddress: sender, Subject: subject, AttachmentCount: 1}
					att := AttachmentMetadata{Filename: filename, MimeType: "application/pdf", SizeBytes: size}
					b := ScoreAttachment(email, att, p)

					label := fmt.Sprintf("%q/%q/%q/%d", sender, subject, filename, size)
					for _, v := range []int{b.FilenameScore, b.SubjectScore, b.PropertiesScore, b.SenderScore, b.Total} {
						assert.GreaterOrEqual(t, v, 0, label)
						assert.LessOrEqual(t, v, 100, label)
					}
					assert.LessOrEqual(t, b.PropertiesScore, 20, label)
					assert.LessOrEqual(t, b.SenderScore, 10, label)
					assert.Equal(t, b, ScoreAttachment(email, att, p), label)
				}
			}
		}
	}
}

func TestSenderScoreJobDescriptionClass(t *testing.T) {
	p := newTestPolicy(t, func(c *PolicyConfig) { c.PreferredSenderDomainClass = DomainCorporate })

	assert.Equal(t, 10, senderScore("talent@acme.io", p))
	assert.Equal(t, 5, senderScore("jane@gmail.com", p))
	assert.Equal(t, 0, senderScore("no-reply@acme.io", p))
	assert.Equal(t, 5, senderScore("", p))
	assert.Equal(t, 5, senderScore("jane", p))
}

func TestSenderScoreWithoutDomain(t *testing.T) {
	p := newTestPolicy(t)

	assert.Equal(t, 5, senderScore("", p))
	assert.Equal(t, 5, senderScore("jane@", p))
	assert.Equal(t, 10, senderScore("jane@gmail.com", p))
}
