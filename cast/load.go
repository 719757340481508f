package cast

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/siftgo/sift/filter"
)

var (
	transformMu sync.RWMutex
	transforms  = map[string]Transform{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
	}
)

// RegisterTransform makes a value transform available to configuration
// files under the given name. Registering an existing name replaces it.
func RegisterTransform(name string, t Transform) {
	transformMu.Lock()
	transforms[name] = t
	transformMu.Unlock()
}

func lookupTransform(name string) (Transform, bool) {
	transformMu.RLock()
	t, ok := transforms[name]
	transformMu.RUnlock()
	return t, ok
}

// LoadCUE parses a cast config from CUE source. The expected shape:
//
//	cast: {
//		policy: "reject"
//		columns: {
//			name:     {to: "fullName", transform: "upper"}
//			signup:   {to: "createdAt", op: "gte"}
//			age:      "years"
//			internal: {exclude: true}
//		}
//	}
//
// A plain string entry is shorthand for {to: <string>}.
func LoadCUE(source string) (*Config, error) {
	root, err := compileCUE(source, "cast")
	if err != nil {
		return nil, err
	}
	return parseCUEConfig(root)
}

// LoadRegistryCUE parses a set of named cast configs from CUE source. Each
// field under mappings: follows the cast: config shape.
//
//	mappings: {
//		api:   {policy: "reject", columns: {...}}
//		admin: {columns: {...}}
//	}
func LoadRegistryCUE(source string) (*Registry, error) {
	root, err := compileCUE(source, "mappings")
	if err != nil {
		return nil, err
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, &ConfigError{Field: "mappings", Message: err.Error()}
	}
	reg := NewRegistry()
	for iter.Next() {
		name := iter.Selector().Unquoted()
		cfg, err := parseCUEConfig(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("mapping %q: %w", name, err)
		}
		reg.Register(name, cfg)
	}
	return reg, nil
}

func compileCUE(source, section string) (cue.Value, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(source)
	if err := value.Err(); err != nil {
		return cue.Value{}, &ConfigError{Message: fmt.Sprintf("compiling CUE config: %v", err)}
	}
	root := value.LookupPath(cue.ParsePath(section))
	if !root.Exists() {
		return cue.Value{}, &ConfigError{Field: section, Message: "no " + section + " section found"}
	}
	return root, nil
}

func parseCUEConfig(root cue.Value) (*Config, error) {
	cfg := New()
	if policyVal := root.LookupPath(cue.ParsePath("policy")); policyVal.Exists() {
		name, err := policyVal.String()
		if err != nil {
			return nil, &ConfigError{Field: "policy", Message: err.Error()}
		}
		policy, err := parsePolicy(name)
		if err != nil {
			return nil, err
		}
		cfg.WithPolicy(policy)
	}

	columnsVal := root.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return cfg, nil
	}
	iter, err := columnsVal.Fields()
	if err != nil {
		return nil, &ConfigError{Field: "columns", Message: err.Error()}
	}
	for iter.Next() {
		from := iter.Selector().Unquoted()
		if err := applyCUEEntry(cfg, from, iter.Value()); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadCUEFile reads and parses a CUE cast config from disk.
func LoadCUEFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cast config: %w", err)
	}
	return LoadCUE(string(data))
}

func applyCUEEntry(cfg *Config, from string, v cue.Value) error {
	if to, err := v.String(); err == nil {
		cfg.Map(from, to)
		return nil
	}

	if excludeVal := v.LookupPath(cue.ParsePath("exclude")); excludeVal.Exists() {
		exclude, err := excludeVal.Bool()
		if err != nil {
			return &ConfigError{Field: "columns." + from, Message: err.Error()}
		}
		if exclude {
			cfg.Exclude(from)
			return nil
		}
	}

	toVal := v.LookupPath(cue.ParsePath("to"))
	if !toVal.Exists() {
		return &ConfigError{Field: "columns." + from, Message: "entry needs to: or exclude: true"}
	}
	to, err := toVal.String()
	if err != nil {
		return &ConfigError{Field: "columns." + from, Message: err.Error()}
	}

	r := rule{target: filter.Col(to)}
	if tVal := v.LookupPath(cue.ParsePath("transform")); tVal.Exists() {
		name, err := tVal.String()
		if err != nil {
			return &ConfigError{Field: "columns." + from, Message: err.Error()}
		}
		t, ok := lookupTransform(name)
		if !ok {
			return &ConfigError{Field: "columns." + from, Message: fmt.Sprintf("unknown transform %q", name)}
		}
		r.transform = t
	}
	if opVal := v.LookupPath(cue.ParsePath("op")); opVal.Exists() {
		name, err := opVal.String()
		if err != nil {
			return &ConfigError{Field: "columns." + from, Message: err.Error()}
		}
		op, err := parseOp(from, name)
		if err != nil {
			return err
		}
		r.op = op
	}
	cfg.rules[ruleKey(filter.Col(from))] = r
	return nil
}

func parseOp(from, name string) (filter.Operator, error) {
	op := filter.Operator(strings.ToLower(name))
	if !filter.ValidOperators[op] {
		return "", &ConfigError{Field: "columns." + from, Message: fmt.Sprintf("unknown operator %q", name)}
	}
	return op, nil
}

// yamlEntry accepts either the shorthand string form or the full object.
type yamlEntry struct {
	To        string `yaml:"to"`
	Op        string `yaml:"op"`
	Transform string `yaml:"transform"`
	Excluded  bool   `yaml:"exclude"`
}

func (e *yamlEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&e.To)
	}
	type plain yamlEntry
	return node.Decode((*plain)(e))
}

type yamlConfig struct {
	Policy  string               `yaml:"policy"`
	Columns map[string]yamlEntry `yaml:"columns"`
}

// LoadYAML parses a cast config from YAML source. The shape mirrors the CUE
// form:
//
//	policy: reject
//	columns:
//	  name: {to: fullName, transform: upper}
//	  signup: {to: createdAt, op: gte}
//	  age: years
//	  internal: {exclude: true}
func LoadYAML(source []byte) (*Config, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("parsing YAML config: %v", err)}
	}
	return buildYAMLConfig(raw)
}

// LoadRegistryYAML parses a set of named cast configs from YAML source,
// one config per field under mappings:.
func LoadRegistryYAML(source []byte) (*Registry, error) {
	var raw struct {
		Mappings map[string]yamlConfig `yaml:"mappings"`
	}
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("parsing YAML config: %v", err)}
	}
	if raw.Mappings == nil {
		return nil, &ConfigError{Field: "mappings", Message: "no mappings section found"}
	}
	reg := NewRegistry()
	for name, rawCfg := range raw.Mappings {
		cfg, err := buildYAMLConfig(rawCfg)
		if err != nil {
			return nil, fmt.Errorf("mapping %q: %w", name, err)
		}
		reg.Register(name, cfg)
	}
	return reg, nil
}

func buildYAMLConfig(raw yamlConfig) (*Config, error) {
	cfg := New()
	if raw.Policy != "" {
		policy, err := parsePolicy(raw.Policy)
		if err != nil {
			return nil, err
		}
		cfg.WithPolicy(policy)
	}
	for from, entry := range raw.Columns {
		if entry.Excluded {
			cfg.Exclude(from)
			continue
		}
		if entry.To == "" {
			return nil, &ConfigError{Field: "columns." + from, Message: "entry needs to: or exclude: true"}
		}
		r := rule{target: filter.Col(entry.To)}
		if entry.Transform != "" {
			t, ok := lookupTransform(entry.Transform)
			if !ok {
				return nil, &ConfigError{Field: "columns." + from, Message: fmt.Sprintf("unknown transform %q", entry.Transform)}
			}
			r.transform = t
		}
		if entry.Op != "" {
			op, err := parseOp(from, entry.Op)
			if err != nil {
				return nil, err
			}
			r.op = op
		}
		cfg.rules[ruleKey(filter.Col(from))] = r
	}
	return cfg, nil
}

// LoadYAMLFile reads and parses a YAML cast config from disk.
func LoadYAMLFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cast config: %w", err)
	}
	return LoadYAML(data)
}

func parsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "pass", "passthrough", "pass-through":
		return PassThrough, nil
	case "exclude":
		return Exclude, nil
	case "reject", "throw":
		return Reject, nil
	default:
		return 0, &ConfigError{Field: "policy", Message: fmt.Sprintf("unknown policy %q", name)}
	}
}
