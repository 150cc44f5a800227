package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/JonMunkholm/gridmap/internal/source"
	"gopkg.in/yaml.v3"
)

// ErrPipelineNotFound is returned by PipelineSet.Get for unknown names.
var ErrPipelineNotFound = errors.New("pipeline not found")

// Pipeline is one named grid-to-record job.
//
//	name: roster
//	source: {path: roster.xlsx, sheet: People, range: "A3:F"}
//	header_offset: 0      # null for a sheet without a header row
//	columns:
//	  name: Full Name
//	  team: {name: Team, autofill: true}
//	  status: {name: Status, default: active}
//	target: person
//	context: {job: nightly}
type Pipeline struct {
	Name         string            `yaml:"name" json:"name"`
	Source       source.Spec       `yaml:"source" json:"source"`
	HeaderOffset core.HeaderOffset `yaml:"-" json:"header_offset"`
	Columns      core.Columns      `yaml:"columns" json:"-"`
	Target       string            `yaml:"target,omitempty" json:"target,omitempty"`
	Context      map[string]any    `yaml:"context,omitempty" json:"context,omitempty"`

	offsetSet bool
	specs     []core.ColumnSpec
}

// pipelineFields has every Pipeline field yaml decodes directly.
type pipelineFields struct {
	Name         string         `yaml:"name"`
	Source       source.Spec    `yaml:"source"`
	HeaderOffset *int           `yaml:"header_offset"`
	Columns      core.Columns   `yaml:"columns"`
	Target       string         `yaml:"target"`
	Context      map[string]any `yaml:"context"`
}

// UnmarshalYAML tells an explicit `header_offset: null` apart from a missing key.
func (p *Pipeline) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: pipeline must be a mapping", node.Line)
	}

	var raw pipelineFields
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*p = Pipeline{
		Name:         raw.Name,
		Source:       raw.Source,
		HeaderOffset: raw.HeaderOffset,
		Columns:      raw.Columns,
		Target:       raw.Target,
		Context:      raw.Context,
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "header_offset" {
			p.offsetSet = true
		}
	}
	return nil
}

// NewPipeline builds a pipeline in code. offset may be core.NoHeader.
func NewPipeline(name string, src source.Spec, offset core.HeaderOffset, cols core.Columns) (*Pipeline, error) {
	p := &Pipeline{
		Name:         name,
		Source:       src,
		HeaderOffset: offset,
		Columns:      cols,
		offsetSet:    true,
	}
	if err := p.prepare(0); err != nil {
		return nil, err
	}
	return p, nil
}

// prepare applies the default header offset and resolves the columns.
func (p *Pipeline) prepare(defaultOffset int) error {
	if !p.offsetSet {
		p.HeaderOffset = core.Offset(defaultOffset)
	}
	if p.HeaderOffset != nil && *p.HeaderOffset < 0 {
		return fmt.Errorf("header_offset (%d) must be non-negative", *p.HeaderOffset)
	}

	specs, err := p.Columns.Resolve()
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no columns declared: %w", core.ErrInvalidColumn)
	}
	p.specs = specs
	return nil
}

// Specs returns the resolved column specs.
func (p *Pipeline) Specs() []core.ColumnSpec {
	return p.specs
}

// Options builds the transform options for this pipeline.
func (p *Pipeline) Options() core.Options {
	return core.Options{
		HeaderOffset: p.HeaderOffset,
		Columns:      p.specs,
		Target:       p.Target,
	}
}

// ParsePipeline decodes a single pipeline document (YAML or JSON), as sent
// with an upload. A missing header_offset takes defaultOffset.
func ParsePipeline(data []byte, defaultOffset int) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}
	if err := p.prepare(defaultOffset); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &p, nil
}

// PipelineSet is the collection of named pipelines from a pipelines file.
// The zero value is an empty set.
type PipelineSet struct {
	list   []*Pipeline
	byName map[string]*Pipeline
}

// LoadPipelines reads a pipelines file. Relative source paths resolve
// against the file's directory.
func LoadPipelines(path string, defaultOffset int) (*PipelineSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipelines: %w", err)
	}
	return ParsePipelines(data, filepath.Dir(path), defaultOffset)
}

// ParsePipelines decodes a pipelines document:
//
//	pipelines:
//	  - name: ...
func ParsePipelines(data []byte, baseDir string, defaultOffset int) (*PipelineSet, error) {
	var doc struct {
		Pipelines []*Pipeline `yaml:"pipelines"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pipelines: %w", err)
	}

	set := &PipelineSet{byName: make(map[string]*Pipeline, len(doc.Pipelines))}
	var errs []error
	for i, p := range doc.Pipelines {
		if p == nil || p.Name == "" {
			errs = append(errs, fmt.Errorf("pipeline %d: name is required", i))
			continue
		}
		if _, dup := set.byName[p.Name]; dup {
			errs = append(errs, fmt.Errorf("pipeline %q: duplicate name", p.Name))
			continue
		}
		if err := p.prepare(defaultOffset); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %q: %w", p.Name, err))
			continue
		}
		if p.Source.Path != "" && !filepath.IsAbs(p.Source.Path) && baseDir != "" {
			p.Source.Path = filepath.Join(baseDir, p.Source.Path)
		}
		set.list = append(set.list, p)
		set.byName[p.Name] = p
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return set, nil
}

// Get returns the named pipeline.
func (s *PipelineSet) Get(name string) (*Pipeline, error) {
	if s != nil {
		if p, ok := s.byName[name]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPipelineNotFound, name)
}

// List returns the pipelines in file order.
func (s *PipelineSet) List() []*Pipeline {
	if s == nil {
		return nil
	}
	return slices.Clone(s.list)
}

// Len returns the number of pipelines.
func (s *PipelineSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}
