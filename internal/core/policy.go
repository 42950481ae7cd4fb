package core

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/mikey/llm-doc-detector/internal/domains"
)

// DomainClass classifies a sender's mail domain
type DomainClass string

const (
	DomainPersonal  DomainClass = "personal"
	DomainCorporate DomainClass = "corporate"
	// DomainUnknown is reported for addresses without a usable domain
	DomainUnknown DomainClass = "unknown"
)

// Default policy constants
const (
	DefaultHighThreshold      = 70
	DefaultLowThreshold       = 40
	DefaultAIConfidenceCutoff = 0.7
	DefaultAIWeight           = 30.0
	DefaultFilenameScore      = 8
	DefaultSubjectScore       = 5
)

// PatternRuleConfig is one uncompiled row of a pattern table
type PatternRuleConfig struct {
	Name    string
	Pattern string
	Score   int
}

// PatternRule is one compiled row of a pattern table
type PatternRule struct {
	Name    string
	Pattern *regexp.Regexp
	Score   int
}

// SizeRange is an inclusive byte range
type SizeRange struct {
	Min int64
	Max int64
}

// Contains reports whether size lies within the range
func (r SizeRange) Contains(size int64) bool {
	return size >= r.Min && size <= r.Max
}

// PolicyConfig is the raw, uncompiled description of a document type
type PolicyConfig struct {
	Name                       string
	AllowedMimeTypes           []string
	SizeRange                  SizeRange
	TypicalSizeRange           SizeRange
	AutomatedSenderPatterns    []string
	NegativeSubjectKeywords    []string
	FilenamePatternTable       []PatternRuleConfig
	SubjectPatternTable        []PatternRuleConfig
	FilenameDefault            int
	SubjectDefault             int
	PreferredSenderDomainClass DomainClass
	PersonalDomains            []string
	HighThreshold              int
	LowThreshold               int
	AIConfidenceCutoff         float64
	AIWeight                   float64
	PromptTemplate             string
	SimplifiedPromptTemplate   string
}

// Policy is the validated, compiled configuration for one document type.
// It is never mutated after NewPolicy returns; the lookup tables are private
// and only exposed as copies.
type Policy struct {
	Name                       string
	SizeRange                  SizeRange
	TypicalSizeRange           SizeRange
	FilenameDefault            int
	SubjectDefault             int
	PreferredSenderDomainClass DomainClass
	HighThreshold              int
	LowThreshold               int
	AIConfidenceCutoff         float64
	AIWeight                   float64
	PromptTemplate             string
	SimplifiedPromptTemplate   string

	allowedMimeTypes map[string]struct{}
	automated        []*regexp.Regexp
	negativeKeywords []string
	filenameTable    []PatternRule
	subjectTable     []PatternRule
	personal         *domains.Checker
}

// NewPolicy validates cfg and compiles its pattern tables
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, configError("name", "policy name is required")
	}
	if cfg.LowThreshold < 0 || cfg.HighThreshold > 100 || cfg.LowThreshold >= cfg.HighThreshold {
		return nil, configError("thresholds", "require 0 <= low < high <= 100, got low=%d high=%d",
			cfg.LowThreshold, cfg.HighThreshold)
	}
	if cfg.AIConfidenceCutoff < 0 || cfg.AIConfidenceCutoff > 1 {
		return nil, configError("ai_confidence_cutoff", "must be within [0,1], got %v", cfg.AIConfidenceCutoff)
	}
	if cfg.AIWeight < 0 || cfg.AIWeight > 100 {
		return nil, configError("ai_weight", "must be within [0,100], got %v", cfg.AIWeight)
	}
	if cfg.SizeRange.Min < 0 || cfg.SizeRange.Min > cfg.SizeRange.Max {
		return nil, configError("size_range", "invalid range [%d,%d]", cfg.SizeRange.Min, cfg.SizeRange.Max)
	}
	if cfg.TypicalSizeRange.Min < 0 || cfg.TypicalSizeRange.Min > cfg.TypicalSizeRange.Max {
		return nil, configError("typical_size_range", "invalid range [%d,%d]",
			cfg.TypicalSizeRange.Min, cfg.TypicalSizeRange.Max)
	}
	if len(cfg.AllowedMimeTypes) == 0 {
		return nil, configError("allowed_mime_types", "at least one MIME type is required")
	}
	if strings.TrimSpace(cfg.PromptTemplate) == "" {
		return nil, configError("prompt_template", "prompt template is required")
	}
	switch cfg.PreferredSenderDomainClass {
	case DomainPersonal, DomainCorporate:
	default:
		return nil, configError("preferred_sender_domain_class", "unknown class %q", cfg.PreferredSenderDomainClass)
	}

	mimeTypes := make(map[string]struct{}, len(cfg.AllowedMimeTypes))
	for _, mt := range cfg.AllowedMimeTypes {
		mimeTypes[normalizeMimeType(mt)] = struct{}{}
	}

	automated, err := compilePatterns(cfg.AutomatedSenderPatterns)
	if err != nil {
		return nil, configError("automated_sender_patterns", "%v", err)
	}

	filenameTable, err := compileTable(cfg.FilenamePatternTable)
	if err != nil {
		return nil, configError("filename_pattern_table", "%v", err)
	}

	subjectTable, err := compileTable(cfg.SubjectPatternTable)
	if err != nil {
		return nil, configError("subject_pattern_table", "%v", err)
	}

	keywords := make([]string, 0, len(cfg.NegativeSubjectKeywords))
	for _, kw := range cfg.NegativeSubjectKeywords {
		if kw = foldText(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	personalDomains := cfg.PersonalDomains
	if len(personalDomains) == 0 {
		personalDomains = domains.DefaultPersonal
	}

	simplified := cfg.SimplifiedPromptTemplate
	if strings.TrimSpace(simplified) == "" {
		simplified = cfg.PromptTemplate
	}

	return &Policy{
		Name:                       name,
		SizeRange:                  cfg.SizeRange,
		TypicalSizeRange:           cfg.TypicalSizeRange,
		FilenameDefault:            clampScore(cfg.FilenameDefault),
		SubjectDefault:             clampScore(cfg.SubjectDefault),
		PreferredSenderDomainClass: cfg.PreferredSenderDomainClass,
		HighThreshold:              cfg.HighThreshold,
		LowThreshold:               cfg.LowThreshold,
		AIConfidenceCutoff:         cfg.AIConfidenceCutoff,
		AIWeight:                   cfg.AIWeight,
		PromptTemplate:             cfg.PromptTemplate,
		SimplifiedPromptTemplate:   simplified,
		allowedMimeTypes:           mimeTypes,
		automated:                  automated,
		negativeKeywords:           keywords,
		filenameTable:              filenameTable,
		subjectTable:               subjectTable,
		personal:                   domains.NewChecker(personalDomains, nil),
	}, nil
}

// AllowedMimeTypes returns the normalized allow list in sorted order
func (p *Policy) AllowedMimeTypes() []string {
	types := make([]string, 0, len(p.allowedMimeTypes))
	for mt := range p.allowedMimeTypes {
		types = append(types, mt)
	}
	slices.Sort(types)
	return types
}

// NegativeSubjectKeywords returns a copy of the folded subject keywords
func (p *Policy) NegativeSubjectKeywords() []string {
	return slices.Clone(p.negativeKeywords)
}

// AllowsMimeType reports whether mimeType is in the policy's allow list
func (p *Policy) AllowsMimeType(mimeType string) bool {
	_, ok := p.allowedMimeTypes[normalizeMimeType(mimeType)]
	return ok
}

// IsAutomatedSender reports whether the local part of address matches an automated pattern
func (p *Policy) IsAutomatedSender(address string) bool {
	local := strings.ToLower(strings.TrimSpace(address))
	if at := strings.LastIndex(local, "@"); at >= 0 {
		local = local[:at]
	}
	for _, re := range p.automated {
		if re.MatchString(local) {
			return true
		}
	}
	return false
}

// SenderDomainClass classifies the domain of address. Addresses without a
// domain are DomainUnknown and never match a preferred class.
func (p *Policy) SenderDomainClass(address string) DomainClass {
	if domains.Domain(address) == "" {
		return DomainUnknown
	}
	if p.personal != nil && p.personal.Contains(address) {
		return DomainPersonal
	}
	return DomainCorporate
}

// Band maps a Stage-2 total to its confidence band
func (p *Policy) Band(total int) Band {
	switch {
	case total >= p.HighThreshold:
		return BandHigh
	case total >= p.LowThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

func compileTable(rows []PatternRuleConfig) ([]PatternRule, error) {
	table := make([]PatternRule, 0, len(rows))
	for i, row := range rows {
		pattern := strings.TrimSpace(row.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("row %d (%s): empty pattern", i, row.Name)
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): compile %q: %w", i, row.Name, pattern, err)
		}
		if row.Score < 0 || row.Score > 100 {
			return nil, fmt.Errorf("row %d (%s): score %d out of [0,100]", i, row.Name, row.Score)
		}
		table = append(table, PatternRule{Name: row.Name, Pattern: re, Score: row.Score})
	}
	return table, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func normalizeMimeType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
