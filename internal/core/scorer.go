package core

// Property and sender score components
const (
	mimeTypeScore    = 12
	typicalSizeScore = 8
	humanSenderScore = 5
	domainClassScore = 5
)

// ScoreAttachment computes the Stage-2 heuristic score from metadata only.
// It is a pure function of its arguments.
func ScoreAttachment(email EmailContext, attachment AttachmentMetadata, policy *Policy) ScoreBreakdown {
	b := ScoreBreakdown{
		FilenameScore:   matchTable(policy.filenameTable, foldText(attachment.Filename), policy.FilenameDefault),
		SubjectScore:    matchTable(policy.subjectTable, foldText(email.Subject), policy.SubjectDefault),
		PropertiesScore: propertiesScore(attachment, policy),
		SenderScore:     senderScore(email.SenderAddress, policy),
	}
	b.Total = clampScore(b.FilenameScore + b.SubjectScore + b.PropertiesScore + b.SenderScore)
	return b
}

// matchTable returns the score of the first rule whose pattern matches text
func matchTable(table []PatternRule, text string, fallback int) int {
	for _, rule := range table {
		if rule.Pattern.MatchString(text) {
			return clampScore(rule.Score)
		}
	}
	return clampScore(fallback)
}

func propertiesScore(attachment AttachmentMetadata, policy *Policy) int {
	score := 0
	if policy.AllowsMimeType(attachment.MimeType) {
		score += mimeTypeScore
	}
	if policy.TypicalSizeRange.Contains(attachment.SizeBytes) {
		score += typicalSizeScore
	}
	return score
}

func senderScore(address string, policy *Policy) int {
	if policy.IsAutomatedSender(address) {
		return 0
	}
	score := humanSenderScore
	if policy.SenderDomainClass(address) == policy.PreferredSenderDomainClass {
		score += domainClassScore
	}
	return score
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
