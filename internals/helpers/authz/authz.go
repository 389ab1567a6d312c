// Package authz evaluates the embedded authorization table used by the
// assignment workflow, user administration and client records.
package authz

import (
	_ "embed"
	"fmt"
	"slices"

	"onboarding_backend/internals/constants"

	"gopkg.in/yaml.v3"
)

type Action string

const (
	AssignmentCreate      Action = "assignment.create"
	AssignmentListAll     Action = "assignment.list_all"
	AssignmentView        Action = "assignment.view"
	AssignmentSign        Action = "assignment.sign"
	AssignmentReject      Action = "assignment.reject"
	AssignmentComplete    Action = "assignment.complete"
	AssignmentDelete      Action = "assignment.delete"
	ProcessEditUnassigned Action = "process.edit_unassigned"

	UserView   Action = "user.view"
	UserUpdate Action = "user.update"
	UserManage Action = "user.manage"
	UserDelete Action = "user.delete"

	ClientCreate Action = "client.create"
	ClientUpdate Action = "client.update"
	ClientDelete Action = "client.delete"
)

// Relation of the caller to the record being acted on.
type Relation string

const (
	RelAssignee Relation = "assignee"
	RelAssigner Relation = "assigner"
	// caller is the user record itself
	RelSelf Relation = "self"
)

type Rule struct {
	Action    Action     `yaml:"action"`
	MinLevel  string     `yaml:"min_level"`
	Levels    []string   `yaml:"levels"`
	Relations []Relation `yaml:"relations"`
}

type Policy struct {
	Rules []Rule `yaml:"rules"`

	byAction map[Action][]Rule
}

//go:embed policy.yaml
var defaultPolicy []byte

var std = MustParse(defaultPolicy)

// Parse loads a policy document and checks every level it names.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	p.byAction = make(map[Action][]Rule, len(p.Rules))
	for i, r := range p.Rules {
		if r.Action == "" {
			return nil, fmt.Errorf("rule %d: missing action", i)
		}
		if r.MinLevel != "" && !constants.IsValidPermission(r.MinLevel) {
			return nil, fmt.Errorf("rule %d: unknown min_level %q", i, r.MinLevel)
		}
		for _, l := range r.Levels {
			if !constants.IsValidPermission(l) {
				return nil, fmt.Errorf("rule %d: unknown level %q", i, l)
			}
		}
		p.byAction[r.Action] = append(p.byAction[r.Action], r)
	}
	return &p, nil
}

func MustParse(data []byte) *Policy {
	p, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return p
}

// Allow reports whether a caller with the given level and relations may
// perform action. Unknown actions are denied.
func (p *Policy) Allow(action Action, level string, rels ...Relation) bool {
	for _, r := range p.byAction[action] {
		if r.matches(level, rels) {
			return true
		}
	}
	return false
}

func (r Rule) matches(level string, rels []Relation) bool {
	if r.MinLevel != "" && !constants.HasMinimumPermission(level, r.MinLevel) {
		return false
	}
	if len(r.Levels) > 0 && !slices.Contains(r.Levels, level) {
		return false
	}
	if len(r.Relations) > 0 {
		for _, want := range r.Relations {
			if slices.Contains(rels, want) {
				return true
			}
		}
		return false
	}
	return true
}

// Allow checks against the embedded default policy.
func Allow(action Action, level string, rels ...Relation) bool {
	return std.Allow(action, level, rels...)
}
