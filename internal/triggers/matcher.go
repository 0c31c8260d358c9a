// Package triggers decides which canned reply rules a chat message fires.
//
// Every substring referenced by any rule is compiled into a single
// Aho-Corasick automaton, so a message body is scanned once regardless of how
// many rules exist. Matching is case-sensitive, like a plain substring test.
package triggers

import (
	"fmt"
	"sort"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

type Rule struct {
	Name     string
	Contains []string
	OrLacks  []string
	Unless   []string
	Replies  []string
}

type Matcher struct {
	rules   []Rule
	machine *goahocorasick.Machine
}

func NewMatcher(rules []Rule) (*Matcher, error) {
	patterns := make([]string, 0)
	for _, rule := range rules {
		patterns = append(patterns, rule.Contains...)
		patterns = append(patterns, rule.OrLacks...)
		patterns = append(patterns, rule.Unless...)
	}
	patterns = lo.Uniq(lo.Compact(patterns))
	sort.Strings(patterns)

	m := &Matcher{rules: rules}
	if len(patterns) == 0 {
		return m, nil
	}

	runes := make([][]rune, len(patterns))
	for i, pattern := range patterns {
		runes[i] = []rune(pattern)
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(runes); err != nil {
		return nil, fmt.Errorf("build trigger automaton: %w", err)
	}
	m.machine = machine
	return m, nil
}

// Match returns the rules fired by body, in configured order.
func (m *Matcher) Match(body string) []Rule {
	present := m.present(body)
	fired := make([]Rule, 0, 2)
	for _, rule := range m.rules {
		if ruleFires(rule, present) {
			fired = append(fired, rule)
		}
	}
	return fired
}

func (m *Matcher) present(body string) map[string]bool {
	found := make(map[string]bool)
	if m.machine == nil || body == "" {
		return found
	}
	for _, term := range m.machine.MultiPatternSearch([]rune(body), false) {
		found[string(term.Word)] = true
	}
	return found
}

func ruleFires(rule Rule, present map[string]bool) bool {
	has := func(s string) bool { return present[s] }
	triggered := lo.SomeBy(rule.Contains, has) || lo.SomeBy(rule.OrLacks, func(s string) bool { return !has(s) })
	if !triggered {
		return false
	}
	return !lo.SomeBy(rule.Unless, has)
}
