package policy

import (
	_ "embed"

	"github.com/mikey/llm-doc-detector/internal/core"
)

//go:embed prompts/resume.md
var resumePrompt string

//go:embed prompts/resume_simple.md
var resumeSimplePrompt string

// ResumeConfig returns the résumé/CV detection policy
func ResumeConfig() core.PolicyConfig {
	return core.PolicyConfig{
		Name:             Resume,
		AllowedMimeTypes: documentMimeTypes(),
		SizeRange:        core.SizeRange{Min: 1 * kb, Max: 10 * mb},
		TypicalSizeRange: core.SizeRange{Min: 5 * kb, Max: 2 * mb},

		AutomatedSenderPatterns: automatedSenderPatterns(),
		NegativeSubjectKeywords: []string{
			"newsletter",
			"invoice",
			"receipt",
			"unsubscribe",
			"order confirmation",
			"password reset",
		},

		// Order matters: first match wins.
		FilenamePatternTable: []core.PatternRuleConfig{
			{Name: "strong", Pattern: `(^|[^a-z])(resume|cv|curriculum[ _.-]?vitae|lebenslauf)([^a-z]|$)`, Score: 40},
			{Name: "person", Pattern: `candidate|applicant|profile|(^|[^a-z])bio(data)?([^a-z]|$)`, Score: 25},
			{Name: "generic", Pattern: `document|(^|[^a-z])doc([^a-z]|$)|file|scan`, Score: 8},
			{Name: "negative", Pattern: `invoice|receipt|statement|contract|report|job[ _.-]?description|(^|[^a-z])jd([^a-z]|$)|offer`, Score: 0},
		},
		SubjectPatternTable: []core.PatternRuleConfig{
			{Name: "application", Pattern: `applying|application for|(^|[^a-z])(resume|cv)([^a-z]|$)|candidate`, Score: 30},
			{Name: "role", Pattern: `position|role|vacancy|opening|(^|[^a-z])job([^a-z]|$)`, Score: 20},
			{Name: "negative", Pattern: `job description|(^|[^a-z])jd([^a-z]|$)|hiring`, Score: 0},
		},
		FilenameDefault: core.DefaultFilenameScore,
		SubjectDefault:  core.DefaultSubjectScore,

		PreferredSenderDomainClass: core.DomainPersonal,

		HighThreshold:      core.DefaultHighThreshold,
		LowThreshold:       core.DefaultLowThreshold,
		AIConfidenceCutoff: core.DefaultAIConfidenceCutoff,
		AIWeight:           core.DefaultAIWeight,

		PromptTemplate:           resumePrompt,
		SimplifiedPromptTemplate: resumeSimplePrompt,
	}
}
