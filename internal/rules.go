package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrUnknownService is returned when rules name a service that is not registered.
var ErrUnknownService = errors.New("rules: unknown service")

// RuleSet maps service names to their method whitelists.
//
// In YAML a rule is either a mapping or a bare verb:
//
//	pages:
//	  list: GET
//	  update:
//	    type: POST
//	    perm: pages.write
//	  feed:
//	    public: true
//	    raw: true
//	    match: '(?P<year>\d{4})'
type RuleSet map[string]map[string]MethodAccessRule

// UnmarshalYAML accepts a scalar verb or a full rule mapping.
func (r *MethodAccessRule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*r = MethodAccessRule{Verb: node.Value}
		return nil
	}
	type plain MethodAccessRule
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = MethodAccessRule(p)
	return nil
}

// ParseRules decodes a YAML rule set.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	if rs == nil {
		rs = RuleSet{}
	}
	return rs, nil
}

// LoadRules reads and decodes the YAML rule file name from fsys.
func LoadRules(fsys fs.FS, name string) (RuleSet, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("rules: reading %q: %w", name, err)
	}
	return ParseRules(data)
}

// apply merges the rule set into svcs. Rules from the set replace rules
// declared in code for the same method.
func (rs RuleSet) apply(svcs []Service) ([]Service, error) {
	known := make(map[string]int, len(svcs))
	for i, svc := range svcs {
		known[svc.Name] = i
	}

	out := slices.Clone(svcs)
	for name, rules := range rs {
		i, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
		}
		merged := make(map[string]MethodAccessRule, len(out[i].Rules)+len(rules))
		maps.Copy(merged, out[i].Rules)
		maps.Copy(merged, rules)
		out[i].Rules = merged
	}
	return out, nil
}
