package ratelimit

import (
	"fmt"
	"os"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// Rule is one row of the endpoint table. A rule applies when the request
// path contains any of its Match substrings.
type Rule struct {
	Name   string
	Match  []string
	Limit  int
	Window time.Duration
}

func (r Rule) matches(path string) bool {
	for _, m := range r.Match {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}

// Policy is an ordered endpoint table. The first matching rule wins and
// Default applies to everything else.
type Policy struct {
	Rules   []Rule
	Default Rule
}

// Match returns the rule governing path.
func (p Policy) Match(path string) Rule {
	for _, r := range p.Rules {
		if r.matches(path) {
			return r
		}
	}
	return p.Default
}

// DefaultPolicy is the production endpoint table, tightest first.
func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{Name: "auth", Match: []string{"/auth", "/login"}, Limit: 10, Window: time.Minute},
			{Name: "register", Match: []string{"/register"}, Limit: 5, Window: time.Minute},
			{Name: "tts", Match: []string{"/tts"}, Limit: 50, Window: time.Minute},
			{Name: "devices", Match: []string{"/devices"}, Limit: 100, Window: time.Minute},
			{Name: "games", Match: []string{"/games"}, Limit: 200, Window: time.Minute},
			{Name: "ai", Match: []string{"/ai"}, Limit: 150, Window: time.Minute},
		},
		Default: Rule{Name: "default", Limit: 100, Window: time.Minute},
	}
}

// DevelopmentPolicy relaxes every row of DefaultPolicy for local work.
func DevelopmentPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{Name: "auth", Match: []string{"/auth", "/login"}, Limit: 30, Window: time.Minute},
			{Name: "register", Match: []string{"/register"}, Limit: 20, Window: time.Minute},
			{Name: "tts", Match: []string{"/tts"}, Limit: 200, Window: time.Minute},
			{Name: "devices", Match: []string{"/devices"}, Limit: 200, Window: time.Minute},
			{Name: "games", Match: []string{"/games"}, Limit: 500, Window: time.Minute},
			{Name: "ai", Match: []string{"/ai"}, Limit: 300, Window: time.Minute},
		},
		Default: Rule{Name: "default", Limit: 500, Window: time.Minute},
	}
}

type ruleFile struct {
	Name          string   `json:"name"`
	Match         []string `json:"match"`
	Limit         int      `json:"limit"`
	WindowSeconds int      `json:"windowSeconds"`
}

type policyFile struct {
	Rules   []ruleFile `json:"rules"`
	Default ruleFile   `json:"default"`
}

// ParsePolicy decodes a YAML endpoint table.
//
//	rules:
//	  - name: auth
//	    match: ["/auth", "/login"]
//	    limit: 10
//	    windowSeconds: 60
//	default:
//	  limit: 100
//	  windowSeconds: 60
func ParsePolicy(data []byte) (Policy, error) {
	var pf policyFile
	if err := yaml.UnmarshalStrict(data, &pf); err != nil {
		return Policy{}, fmt.Errorf("decoding rate limit policy: %w", err)
	}

	var p Policy
	for i, rf := range pf.Rules {
		if len(rf.Match) == 0 {
			return Policy{}, fmt.Errorf("rule %d (%s): match must not be empty", i, rf.Name)
		}
		r, err := rf.toRule()
		if err != nil {
			return Policy{}, fmt.Errorf("rule %d (%s): %w", i, rf.Name, err)
		}
		p.Rules = append(p.Rules, r)
	}

	if pf.Default.Name == "" {
		pf.Default.Name = "default"
	}
	def, err := pf.Default.toRule()
	if err != nil {
		return Policy{}, fmt.Errorf("default rule: %w", err)
	}
	p.Default = def

	return p, nil
}

// LoadPolicyFile reads and decodes a YAML endpoint table from path.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading rate limit policy: %w", err)
	}
	return ParsePolicy(data)
}

func (rf ruleFile) toRule() (Rule, error) {
	if rf.Limit <= 0 {
		return Rule{}, fmt.Errorf("limit must be positive")
	}
	if rf.WindowSeconds <= 0 {
		return Rule{}, fmt.Errorf("windowSeconds must be positive")
	}
	return Rule{
		Name:   rf.Name,
		Match:  rf.Match,
		Limit:  rf.Limit,
		Window: time.Duration(rf.WindowSeconds) * time.Second,
	}, nil
}

// MaxWindow returns the longest window of any rule in the policy.
func (p Policy) MaxWindow() time.Duration {
	longest := p.Default.Window
	for _, r := range p.Rules {
		if r.Window > longest {
			longest = r.Window
		}
	}
	return longest
}
