// Package policy holds the built-in document-type policies.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mikey/llm-doc-detector/internal/core"
)

// Built-in policy names
const (
	Resume         = "resume"
	JobDescription = "job_description"
)

const (
	kb = 1024
	mb = 1024 * kb
)

// ErrUnknownPolicy is returned for a policy name with no built-in table
var ErrUnknownPolicy = errors.New("unknown policy")

var builtins = map[string]func() core.PolicyConfig{
	Resume:         ResumeConfig,
	JobDescription: JobDescriptionConfig,
}

// Overrides replaces selected tunables of a built-in policy. Nil fields keep
// the built-in value.
type Overrides struct {
	HighThreshold      *int
	LowThreshold       *int
	AIConfidenceCutoff *float64
	AIWeight           *float64
	PersonalDomains    []string
	AllowedMimeTypes   []string
}

// Names lists the built-in policies in a stable order
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the raw configuration of a built-in policy
func Config(name string) (core.PolicyConfig, error) {
	build, ok := builtins[normalizeName(name)]
	if !ok {
		return core.PolicyConfig{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return build(), nil
}

// ByName compiles a built-in policy with its default tunables
func ByName(name string) (*core.Policy, error) {
	return Load(name, Overrides{})
}

// Load compiles a built-in policy after applying overrides
func Load(name string, o Overrides) (*core.Policy, error) {
	cfg, err := Config(name)
	if err != nil {
		return nil, err
	}

	if o.HighThreshold != nil {
		cfg.HighThreshold = *o.HighThreshold
	}
	if o.LowThreshold != nil {
		cfg.LowThreshold = *o.LowThreshold
	}
	if o.AIConfidenceCutoff != nil {
		cfg.AIConfidenceCutoff = *o.AIConfidenceCutoff
	}
	if o.AIWeight != nil {
		cfg.AIWeight = *o.AIWeight
	}
	if len(o.PersonalDomains) > 0 {
		cfg.PersonalDomains = o.PersonalDomains
	}
	if len(o.AllowedMimeTypes) > 0 {
		cfg.AllowedMimeTypes = o.AllowedMimeTypes
	}

	p, err := core.NewPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", cfg.Name, err)
	}
	return p, nil
}

// LoadAll compiles every named policy, failing on the first invalid one
func LoadAll(names []string, overrides map[string]Overrides) ([]*core.Policy, error) {
	if len(names) == 0 {
		names = Names()
	}
	policies := make([]*core.Policy, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = normalizeName(name)
		if seen[name] {
			continue
		}
		seen[name] = true

		p, err := Load(name, overrides[name])
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "_", " ", "_").Replace(name)
}

func documentMimeTypes() []string {
	return []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
		"application/rtf",
		"text/rtf",
	}
}

// Job postings are often forwarded as saved web pages or markdown exports.
func webPageMimeTypes() []string {
	return []string{
		"text/html",
		"application/xhtml+xml",
		"text/markdown",
	}
}

func automatedSenderPatterns() []string {
	return []string{
		`no-?reply`,
		`do-?not-?reply`,
		`automated`,
		`mailer-daemon`,
		`postmaster`,
		`bounce`,
	}
}
