package filter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// DefaultHeaderPrefix prefixes every detection header
const DefaultHeaderPrefix = "X-Doc"

// HeaderName builds a header name such as X-Doc-Job-Description-Detected
func HeaderName(prefix, policy, field string) string {
	if prefix == "" {
		prefix = DefaultHeaderPrefix
	}
	words := strings.FieldsFunc(policy, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return prefix + "-" + strings.Join(words, "-") + "-" + field
}

// DetectionHeader returns the header fields describing one summary
func DetectionHeader(prefix string, summary *core.ProcessingSummary) message.Header {
	var h message.Header

	confidence := 0.0
	reason := summary.FilterReason
	attachment := ""
	if best := summary.BestResult; best != nil {
		confidence = best.FinalConfidence
		reason = best.Reason
		attachment = best.Attachment.Filename
	} else if !summary.ShouldProcess {
		reason = "not processed: " + summary.FilterReason
	} else {
		for _, r := range summary.Results {
			if r.FinalConfidence >= confidence {
				confidence = r.FinalConfidence
				reason = r.Reason
			}
		}
	}

	h.Set(HeaderName(prefix, summary.Policy, "Detected"), fmt.Sprintf("%t", summary.Detected))
	h.Set(HeaderName(prefix, summary.Policy, "Confidence"), fmt.Sprintf("%.2f", confidence))
	if reason != "" {
		h.SetText(HeaderName(prefix, summary.Policy, "Reason"), reason)
	}
	if attachment != "" {
		h.SetText(HeaderName(prefix, summary.Policy, "Attachment"), attachment)
	}
	return h
}

// Annotate prepends the detection headers of every summary to raw. The
// original message is otherwise left untouched.
func Annotate(raw []byte, prefix string, summaries []*core.ProcessingSummary, extra ...[2]string) ([]byte, error) {
	var buf bytes.Buffer

	for _, summary := range summaries {
		if summary == nil {
			continue
		}
		if err := writeFields(&buf, DetectionHeader(prefix, summary)); err != nil {
			return nil, err
		}
	}

	if len(extra) > 0 {
		var h message.Header
		for _, kv := range extra {
			h.SetText(kv[0], kv[1])
		}
		if err := writeFields(&buf, h); err != nil {
			return nil, err
		}
	}

	buf.Write(raw)
	return buf.Bytes(), nil
}

// writeFields writes header fields without the blank line that ends a header block
func writeFields(buf *bytes.Buffer, h message.Header) error {
	var tmp bytes.Buffer
	if err := textproto.WriteHeader(&tmp, h.Header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\r\n")))
	return nil
}
