package core

import (
	"fmt"
	"strings"
)

// FilterDecision is the Stage-1 outcome for a whole email
type FilterDecision struct {
	ShouldProcess bool
	Reason        string
	Survivors     []AttachmentMetadata
	// Dropped maps attachment IDs removed by the per-attachment rule to the reason
	Dropped map[string]string
}

// FilterMetadata applies the metadata-only admission rules. Rules are
// evaluated in order and the first three reject the whole email.
func FilterMetadata(email EmailContext, attachments []AttachmentMetadata, policy *Policy) FilterDecision {
	if len(attachments) == 0 {
		return FilterDecision{Reason: "no attachments"}
	}

	if policy.IsAutomatedSender(email.SenderAddress) {
		return FilterDecision{Reason: fmt.Sprintf("automated sender %q", email.SenderAddress)}
	}

	subject := foldText(email.Subject)
	for _, kw := range policy.negativeKeywords {
		if strings.Contains(subject, kw) {
			return FilterDecision{Reason: fmt.Sprintf("negative subject keyword %q", kw)}
		}
	}

	survivors := make([]AttachmentMetadata, 0, len(attachments))
	dropped := make(map[string]string)
	for _, att := range attachments {
		if ok, reason := AdmitAttachment(att, policy); !ok {
			dropped[att.ID] = reason
			continue
		}
		survivors = append(survivors, att)
	}

	if len(survivors) == 0 {
		return FilterDecision{Reason: "no attachment passed type and size checks", Dropped: dropped}
	}

	return FilterDecision{
		ShouldProcess: true,
		Reason:        fmt.Sprintf("%d of %d attachments admitted", len(survivors), len(attachments)),
		Survivors:     survivors,
		Dropped:       dropped,
	}
}

// AdmitAttachment applies the per-attachment type and size rule
func AdmitAttachment(att AttachmentMetadata, policy *Policy) (bool, string) {
	switch {
	case !policy.AllowsMimeType(att.MimeType):
		return false, fmt.Sprintf("mime type %q not allowed", att.MimeType)
	case !policy.SizeRange.Contains(att.SizeBytes):
		return false, fmt.Sprintf("size %d outside [%d,%d]", att.SizeBytes, policy.SizeRange.Min, policy.SizeRange.Max)
	default:
		return true, ""
	}
}
