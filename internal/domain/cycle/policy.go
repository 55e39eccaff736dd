package cycle

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DeadlinePolicy supplies the deadline for the stage a status sits in. ok is
// false for stages that have no deadline.
type DeadlinePolicy interface {
	Deadline(c Cycle, stage string) (deadline time.Time, ok bool)
}

// WindowPolicy splits the cycle window evenly across the five working
// stages: stage i is due at start + (i+1)/5 of the window.
type WindowPolicy struct{}

func (WindowPolicy) Deadline(c Cycle, stage string) (time.Time, bool) {
	i := StageIndex(stage)
	if i < 0 || stage == StageCompleted {
		return time.Time{}, false
	}
	steps := len(Stages) - 1
	window := c.EndDate.Sub(c.StartDate)
	return c.StartDate.Add(window * time.Duration(i+1) / time.Duration(steps)), true
}

const (
	AnchorStart = "start"
	AnchorEnd   = "end"
)

// StageRule places a deadline offsetDays away from the cycle start or end.
type StageRule struct {
	Anchor     string `yaml:"anchor"`
	OffsetDays int    `yaml:"offsetDays"`
}

// PolicyFile is the on-disk form of a RulePolicy.
type PolicyFile struct {
	Stages map[string]StageRule `yaml:"stages"`
}

// RulePolicy applies per-stage rules and falls back to WindowPolicy for
// stages without one.
type RulePolicy struct {
	Rules    map[string]StageRule
	Fallback DeadlinePolicy
}

func (p RulePolicy) Deadline(c Cycle, stage string) (time.Time, bool) {
	if stage == StageCompleted {
		return time.Time{}, false
	}
	rule, ok := p.Rules[stage]
	if !ok {
		if p.Fallback == nil {
			return time.Time{}, false
		}
		return p.Fallback.Deadline(c, stage)
	}
	base := c.StartDate
	if rule.Anchor == AnchorEnd {
		base = c.EndDate
	}
	return base.AddDate(0, 0, rule.OffsetDays), true
}

// ParsePolicy decodes and validates a YAML deadline policy.
func ParsePolicy(data []byte) (RulePolicy, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return RulePolicy{}, ErrInvalidPolicy.WithMessage("policy is empty")
	}
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RulePolicy{}, ErrInvalidPolicy.WithMessage("decode policy: %v", err)
	}
	rules := make(map[string]StageRule, len(file.Stages))
	for stage, rule := range file.Stages {
		if !ValidStage(stage) {
			return RulePolicy{}, ErrInvalidPolicy.WithMessage("unknown stage %q", stage)
		}
		if stage == StageCompleted {
			return RulePolicy{}, ErrInvalidPolicy.WithMessage("%s has no deadline", StageCompleted)
		}
		if rule.Anchor == "" {
			rule.Anchor = AnchorStart
		}
		if rule.Anchor != AnchorStart && rule.Anchor != AnchorEnd {
			return RulePolicy{}, ErrInvalidPolicy.WithMessage("stage %s: anchor must be %s or %s", stage, AnchorStart, AnchorEnd)
		}
		rules[stage] = rule
	}
	return RulePolicy{Rules: rules, Fallback: WindowPolicy{}}, nil
}

// LoadPolicy reads a policy file. An empty path yields WindowPolicy.
func LoadPolicy(path string) (DeadlinePolicy, error) {
	if path == "" {
		return WindowPolicy{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deadline policy %s: %w", path, err)
	}
	policy, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("deadline policy %s: %w", path, err)
	}
	return policy, nil
}

// IsOverdue reports whether st has stayed in its stage past the stage
// deadline. Completed statuses are never overdue.
func IsOverdue(c Cycle, st Status, now time.Time, policy DeadlinePolicy) bool {
	if st.CurrentStatus == StageCompleted || policy == nil {
		return false
	}
	deadline, ok := policy.Deadline(c, st.CurrentStatus)
	return ok && now.After(deadline)
}
