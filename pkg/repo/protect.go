package repo

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ProtectionRule declares constraints for branches matching Pattern.
// Patterns support "*" within one slash-separated segment and "**" across
// segments; anything else matches literally.
type ProtectionRule struct {
	Pattern              string   `toml:"pattern"`
	RequirePullRequest   bool     `toml:"require_pull_request"`
	AllowForcePush       bool     `toml:"allow_force_push"`
	AllowDeletions       bool     `toml:"allow_deletions"`
	RequiredApprovals    int      `toml:"required_approvals"`
	RequiredStatusChecks []string `toml:"required_status_checks"`
}

// protectionFile is the on-disk TOML shape: repeated [[rule]] tables.
type protectionFile struct {
	Rule []ProtectionRule `toml:"rule"`
}

// LoadProtectionRules reads protection rules from a TOML file.
func LoadProtectionRules(path string) ([]ProtectionRule, error) {
	var file protectionFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("load protection rules: %w", err)
	}
	for i, rule := range file.Rule {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("load protection rules: rule %d has no pattern", i+1)
		}
	}
	return file.Rule, nil
}

// RefChange describes an attempted branch update for protection evaluation.
type RefChange struct {
	ForcePush    bool
	Delete       bool
	ViaPR        bool
	Approvals    int
	PassedChecks []string
}

// Violation names one way a change breaks a matching rule.
type Violation struct {
	Pattern string
	Reason  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Pattern, v.Reason)
}

// MatchRefPattern reports whether a branch name matches a protection
// pattern. "*" matches any characters within a single segment; "**"
// matches any number of whole segments, including zero.
func MatchRefPattern(pattern, branch string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(branch, "/"))
}

func matchSegments(pat, name []string) bool {
	if len(pat) == 0 {
		return len(name) == 0
	}
	if pat[0] == "**" {
		// Zero segments, or consume one and keep the ** active.
		if matchSegments(pat[1:], name) {
			return true
		}
		return len(name) > 0 && matchSegments(pat, name[1:])
	}
	if len(name) == 0 {
		return false
	}
	if !matchSegment(pat[0], name[0]) {
		return false
	}
	return matchSegments(pat[1:], name[1:])
}

// matchSegment matches a single segment with "*" wildcards that never
// cross a slash.
func matchSegment(pat, s string) bool {
	parts := strings.Split(pat, "*")
	if len(parts) == 1 {
		return pat == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}

// EvaluateProtection returns the union of violations across every rule
// matching the branch. A rule that is silent on a dimension never grants
// what another matching rule forbids.
func EvaluateProtection(rules []ProtectionRule, branch string, change RefChange) []Violation {
	var violations []Violation
	for _, rule := range rules {
		if !MatchRefPattern(rule.Pattern, branch) {
			continue
		}
		if change.ForcePush && !rule.AllowForcePush {
			violations = append(violations, Violation{rule.Pattern, "force push not allowed"})
		}
		if change.Delete && !rule.AllowDeletions {
			violations = append(violations, Violation{rule.Pattern, "deletion not allowed"})
		}
		if rule.RequirePullRequest && !change.ViaPR {
			violations = append(violations, Violation{rule.Pattern, "changes must go through a pull request"})
		}
		if change.Approvals < rule.RequiredApprovals {
			violations = append(violations, Violation{
				rule.Pattern,
				fmt.Sprintf("requires %d approvals, have %d", rule.RequiredApprovals, change.Approvals),
			})
		}
		for _, check := range rule.RequiredStatusChecks {
			if !containsString(change.PassedChecks, check) {
				violations = append(violations, Violation{
					rule.Pattern,
					fmt.Sprintf("required status check %q has not passed", check),
				})
			}
		}
	}
	return violations
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
