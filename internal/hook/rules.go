package hook

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/wardenhq/warden/internal/models"
)

// Rule maps a tool name, optionally narrowed by a regex over the tool input
// JSON, to the prompt type it should be gated with.
type Rule struct {
	Tool    string            `yaml:"tool"`
	Pattern string            `yaml:"pattern,omitempty"`
	Type    models.PromptType `yaml:"type"`
}

type rulesFile struct {
	// ReplaceDefaults drops the built-in rules instead of layering on top of
	// them.
	ReplaceDefaults bool   `yaml:"replaceDefaults,omitempty"`
	Rules           []Rule `yaml:"rules"`
}

type compiledRule struct {
	tool    string
	pattern *regexp.Regexp
	typ     models.PromptType
}

// Rules decides which tool calls are gated and with which prompt type. Rules
// are checked in order; the first match wins. Tools matching no rule pass
// through ungated.
type Rules struct {
	rules []compiledRule
}

// DefaultRules gates plan-mode exit, user questions, and git commit/push.
func DefaultRules() *Rules {
	r, err := compile([]Rule{
		{Tool: "ExitPlanMode", Type: models.PromptPlanApproval},
		{Tool: "AskUserQuestion", Type: models.PromptUserQuestion},
		{Tool: "Bash", Pattern: `\bgit\s+(commit|push)\b`, Type: models.PromptCommitApproval},
	})
	if err != nil {
		panic(err) // built-in rules must compile
	}
	return r
}

// LoadRules reads a YAML rules file and layers it over the defaults. An empty
// path returns the defaults unchanged.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	loaded, err := compile(f.Rules)
	if err != nil {
		return nil, err
	}
	if f.ReplaceDefaults {
		return loaded, nil
	}
	// File rules take precedence over defaults.
	loaded.rules = append(loaded.rules, DefaultRules().rules...)
	return loaded, nil
}

func compile(rules []Rule) (*Rules, error) {
	out := &Rules{}
	for _, r := range rules {
		if r.Tool == "" {
			return nil, fmt.Errorf("rule missing tool name")
		}
		if !r.Type.IsValid() {
			return nil, fmt.Errorf("rule for %q has invalid type %q", r.Tool, r.Type)
		}
		cr := compiledRule{tool: r.Tool, typ: r.Type}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule for %q has invalid pattern: %w", r.Tool, err)
			}
			cr.pattern = re
		}
		out.rules = append(out.rules, cr)
	}
	return out, nil
}

// Classify returns the prompt type for the tool call and whether it is gated
// at all.
func (r *Rules) Classify(toolName string, toolInput []byte) (models.PromptType, bool) {
	for _, cr := range r.rules {
		if cr.tool != toolName {
			continue
		}
		if cr.pattern != nil && !cr.pattern.Match(toolInput) {
			continue
		}
		return cr.typ, true
	}
	return "", false
}
