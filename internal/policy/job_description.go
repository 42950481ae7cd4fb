package policy

import (
	_ "embed"

	"github.com/mikey/llm-doc-detector/internal/core"
)

//go:embed prompts/job_description.md
var jobDescriptionPrompt string

//go:embed prompts/job_description_simple.md
var jobDescriptionSimplePrompt string

// JobDescriptionConfig returns the job-description detection policy
func JobDescriptionConfig() core.PolicyConfig {
	return core.PolicyConfig{
		Name:             JobDescription,
		AllowedMimeTypes: append(documentMimeTypes(), webPageMimeTypes()...),
		SizeRange:        core.SizeRange{Min: 1 * kb, Max: 5 * mb},
		TypicalSizeRange: core.SizeRange{Min: 2 * kb, Max: 1 * mb},

		AutomatedSenderPatterns: automatedSenderPatterns(),
		// Candidates applying are the résumé policy's business.
		NegativeSubjectKeywords: []string{
			"applying for",
			"application for",
			"my resume",
			"my cv",
			"newsletter",
			"invoice",
			"unsubscribe",
		},

		FilenamePatternTable: []core.PatternRuleConfig{
			{Name: "strong", Pattern: `job[ _.-]?description|(^|[^a-z])jd([^a-z]|$)|job[ _.-]?spec|vacancy|role[ _.-]?profile`, Score: 40},
			{Name: "role", Pattern: `position|(^|[^a-z])role([^a-z]|$)|opening|requisition|hiring|(^|[^a-z])job([^a-z]|$)`, Score: 25},
			{Name: "generic", Pattern: `document|(^|[^a-z])doc([^a-z]|$)|file|scan`, Score: 8},
			{Name: "negative", Pattern: `(^|[^a-z])(resume|cv)([^a-z]|$)|invoice|receipt`, Score: 0},
		},
		SubjectPatternTable: []core.PatternRuleConfig{
			{Name: "description", Pattern: `job description|(^|[^a-z])jd([^a-z]|$)|job spec|new role|hiring for|requisition`, Score: 30},
			{Name: "role", Pattern: `position|(^|[^a-z])role([^a-z]|$)|vacancy|opening|recruit`, Score: 20},
			{Name: "negative", Pattern: `(^|[^a-z])(resume|cv)([^a-z]|$)|candidate profile`, Score: 0},
		},
		FilenameDefault: core.DefaultFilenameScore,
		SubjectDefault:  core.DefaultSubjectScore,

		PreferredSenderDomainClass: core.DomainCorporate,

		HighThreshold:      core.DefaultHighThreshold,
		LowThreshold:       core.DefaultLowThreshold,
		AIConfidenceCutoff: core.DefaultAIConfidenceCutoff,
		AIWeight:           core.DefaultAIWeight,

		PromptTemplate:           jobDescriptionPrompt,
		SimplifiedPromptTemplate: jobDescriptionSimplePrompt,
	}
}
