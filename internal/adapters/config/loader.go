// Package config provides the YAML build-description loader.
package config

import (
	"os"
	"sort"

	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/shinobi/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader for shinobi.yaml files.
type Loader struct {
	logger ports.Logger
	fsys   ports.FileSystem
}

// NewLoader creates a new Loader.
func NewLoader(logger ports.Logger, fsys ports.FileSystem) *Loader {
	return &Loader{
		logger: logger,
		fsys:   fsys,
	}
}

// BuildFile represents the structure of the shinobi.yaml description.
type BuildFile struct {
	Vars     map[string]string  `yaml:"vars"`
	Rules    map[string]RuleDTO `yaml:"rules"`
	Builds   []BuildDTO         `yaml:"builds"`
	Defaults []string           `yaml:"defaults"`
}

// RuleDTO represents one rule definition.
type RuleDTO struct {
	Command        string `yaml:"command"`
	Description    string `yaml:"description"`
	Depfile        string `yaml:"depfile"`
	Rspfile        string `yaml:"rspfile"`
	RspfileContent string `yaml:"rspfile_content"`
	Restat         bool   `yaml:"restat"`
	Generator      bool   `yaml:"generator"`
}

// BuildDTO represents one edge declaration.
type BuildDTO struct {
	Rule      string            `yaml:"rule"`
	Out       []string          `yaml:"out"`
	In        []string          `yaml:"in"`
	Implicit  []string          `yaml:"implicit"`
	OrderOnly []string          `yaml:"order_only"`
	Vars      map[string]string `yaml:"vars"`
}

// Load reads the build description at path and populates a fresh State.
// All template parsing happens here, so evaluation errors surface before
// any plan is constructed.
func (l *Loader) Load(path string) (*domain.State, []string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "failed to read build description"), "path", path)
	}

	var file BuildFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "failed to parse build description"), "path", path)
	}

	state := domain.NewState(l.fsys)

	for name, value := range file.Vars {
		state.Bindings().Bind(name, value)
	}

	// Rule names are sorted so duplicate detection and error reporting do
	// not depend on map iteration order.
	ruleNames := make([]string, 0, len(file.Rules))
	for name := range file.Rules {
		ruleNames = append(ruleNames, name)
	}
	sort.Strings(ruleNames)

	for _, name := range ruleNames {
		rule, err := parseRule(name, file.Rules[name])
		if err != nil {
			return nil, nil, err
		}
		if err := state.AddRule(rule); err != nil {
			return nil, nil, err
		}
	}

	for i, dto := range file.Builds {
		if err := addEdge(state, dto); err != nil {
			return nil, nil, zerr.With(err, "build_index", i)
		}
	}

	for _, target := range file.Defaults {
		state.AddDefault(target)
	}

	return state, file.Defaults, nil
}

func parseRule(name string, dto RuleDTO) (*domain.Rule, error) {
	rule := &domain.Rule{
		Name:      name,
		Restat:    dto.Restat,
		Generator: dto.Generator,
	}

	templates := []struct {
		text string
		dst  *domain.EvalString
	}{
		{dto.Command, &rule.Command},
		{dto.Description, &rule.Description},
		{dto.Depfile, &rule.Depfile},
		{dto.Rspfile, &rule.Rspfile},
		{dto.RspfileContent, &rule.RspfileContent},
	}
	for _, t := range templates {
		if t.text == "" {
			continue
		}
		parsed, err := domain.ParseEvalString(t.text)
		if err != nil {
			return nil, zerr.With(err, "rule", name)
		}
		*t.dst = parsed
	}

	if rule.Command.Empty() {
		return nil, zerr.With(zerr.New("rule has no command"), "rule", name)
	}
	return rule, nil
}

func addEdge(state *domain.State, dto BuildDTO) error {
	rule := state.LookupRule(dto.Rule)
	if rule == nil {
		return zerr.With(zerr.New("build references unknown rule"), "rule", dto.Rule)
	}
	if len(dto.Out) == 0 {
		return zerr.With(zerr.New("build declares no outputs"), "rule", dto.Rule)
	}

	edge := state.AddEdge(rule)
	for _, out := range dto.Out {
		if err := state.AddInOut(edge, domain.DepOut, out); err != nil {
			return err
		}
	}
	for _, in := range dto.In {
		if err := state.AddInOut(edge, domain.DepIn, in); err != nil {
			return err
		}
	}
	for _, in := range dto.Implicit {
		if err := state.AddInOut(edge, domain.DepInImplicit, in); err != nil {
			return err
		}
	}
	for _, in := range dto.OrderOnly {
		if err := state.AddInOut(edge, domain.DepInOrderOnly, in); err != nil {
			return err
		}
	}
	for name, value := range dto.Vars {
		edge.Env.Bind(name, value)
	}
	return nil
}
