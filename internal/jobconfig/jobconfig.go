// Package jobconfig reads and writes job configuration in YAML.
package jobconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/params"
	"github.com/narvanalabs/persistent-params/internal/store"
	"github.com/narvanalabs/persistent-params/internal/validation"
	"gopkg.in/yaml.v3"
)

// File is the top-level document of a jobs file.
type File struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig is the YAML form of one job.
type JobConfig struct {
	Name        string            `yaml:"name"`
	Kind        string            `yaml:"kind,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Parameters  []ParameterConfig `yaml:"parameters,omitempty"`
}

// ParameterConfig is the YAML form of one parameter definition.
type ParameterConfig struct {
	Token          string  `yaml:"token,omitempty"`
	Type           string  `yaml:"type"`
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description,omitempty"`
	DefaultValue   any     `yaml:"defaultValue,omitempty"`
	SuccessfulOnly bool    `yaml:"successfulOnly,omitempty"`
	Trim           bool    `yaml:"trim,omitempty"`
	Choices        Choices `yaml:"choices,omitempty"`
}

// Choices accepts either a list of strings or a newline-delimited string.
type Choices []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Choices) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = params.SplitChoices(value.Value)
		return nil
	case yaml.SequenceNode:
		var items []*yaml.Node
		if err := value.Decode(&items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				continue
			}
			out = append(out, item.Value)
		}
		*c = out
		return nil
	default:
		return fmt.Errorf("line %d: choices must be a string or a list", value.Line)
	}
}

// Parse decodes a jobs file. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("decoding jobs file: %w", err)
	}
	return &f, nil
}

// ParseJob decodes the configuration of a single job. Unknown keys are rejected.
func ParseJob(r io.Reader) (*JobConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var jc JobConfig
	if err := dec.Decode(&jc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding job configuration: %w", err)
	}
	return &jc, nil
}

// LoadFile reads and decodes the jobs file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// ToJobs validates the file and converts it to job models. Parameters without a
// token get a fresh one. A token may appear only once in the file.
func (f *File) ToJobs() ([]*models.Job, error) {
	seen := make(map[string]bool, len(f.Jobs))
	tokens := make(map[models.Token]string)
	jobs := make([]*models.Job, 0, len(f.Jobs))
	for i, jc := range f.Jobs {
		job, err := jc.toJob()
		if err != nil {
			return nil, fmt.Errorf("job %d (%s): %w", i, jc.Name, err)
		}
		if seen[job.Name] {
			return nil, fmt.Errorf("job %d: duplicate job name %q", i, job.Name)
		}
		seen[job.Name] = true

		for _, spec := range job.ParameterSpecs() {
			where := job.Name + "/" + spec.Name
			if prev, ok := tokens[spec.Token]; ok {
				return nil, fmt.Errorf("job %d (%s): parameter %s: token %s already used by %s: %w", i, job.Name, spec.Name, spec.Token, prev, store.ErrDuplicateToken)
			}
			tokens[spec.Token] = where
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (jc JobConfig) toJob() (*models.Job, error) {
	name := strings.Trim(strings.TrimSpace(jc.Name), "/")
	if name == "" {
		return nil, errors.New("name is required")
	}
	if err := validation.ValidateJobName(name); err != nil {
		return nil, err
	}

	kind := models.JobKind(strings.ToLower(jc.Kind))
	switch kind {
	case "":
		kind = models.JobKindFreestyle
	case models.JobKindFreestyle, models.JobKindPipeline:
	default:
		return nil, fmt.Errorf("unknown kind %q", jc.Kind)
	}

	job := &models.Job{
		Name:        name,
		Kind:        kind,
		Description: jc.Description,
	}
	if len(jc.Parameters) == 0 {
		return job, nil
	}

	names := make(map[string]bool, len(jc.Parameters))
	specs := make([]models.ParameterSpec, 0, len(jc.Parameters))
	for _, pc := range jc.Parameters {
		spec, err := pc.toSpec()
		if err != nil {
			return nil, err
		}
		if names[spec.Name] {
			return nil, fmt.Errorf("duplicate parameter %q", spec.Name)
		}
		names[spec.Name] = true
		specs = append(specs, spec)
	}
	job.Parameters = &models.ParametersProperty{Definitions: specs}
	return job, nil
}

func (pc ParameterConfig) toSpec() (models.ParameterSpec, error) {
	typ, ok := params.ParseType(pc.Type)
	if !ok {
		return models.ParameterSpec{}, fmt.Errorf("parameter %s: unknown type %q", pc.Name, pc.Type)
	}

	if err := validation.ValidateParameterName(pc.Name); err != nil {
		return models.ParameterSpec{}, err
	}

	spec := models.ParameterSpec{
		Type:           typ,
		Name:           strings.TrimSpace(pc.Name),
		Description:    pc.Description,
		DefaultValue:   formatDefault(pc.DefaultValue),
		SuccessfulOnly: pc.SuccessfulOnly,
		Trim:           pc.Trim,
	}
	if typ == models.ParameterTypeChoice {
		spec.Choices = []string(pc.Choices)
	}
	if pc.Token != "" {
		t, err := models.ParseToken(pc.Token)
		if err != nil {
			return models.ParameterSpec{}, fmt.Errorf("parameter %s: %w", pc.Name, err)
		}
		spec.Token = t
	}

	def, err := params.FromSpec(spec)
	if err != nil {
		return models.ParameterSpec{}, err
	}
	return def.Spec(), nil
}

func formatDefault(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	case bool:
		return strconv.FormatBool(d)
	default:
		return fmt.Sprint(d)
	}
}

// FromJobs converts job models back to their YAML form, tokens included.
func FromJobs(jobs []*models.Job) *File {
	f := &File{Jobs: make([]JobConfig, 0, len(jobs))}
	for _, job := range jobs {
		jc := JobConfig{
			Name:        job.Name,
			Kind:        string(job.Kind),
			Description: job.Description,
		}
		for _, spec := range job.ParameterSpecs() {
			pc := ParameterConfig{
				Token:          spec.Token.String(),
				Type:           string(spec.Type),
				Name:           spec.Name,
				Description:    spec.Description,
				SuccessfulOnly: spec.SuccessfulOnly,
				Trim:           spec.Trim,
				Choices:        Choices(spec.Choices),
			}
			if spec.DefaultValue != "" {
				pc.DefaultValue = spec.DefaultValue
			}
			jc.Parameters = append(jc.Parameters, pc)
		}
		f.Jobs = append(f.Jobs, jc)
	}
	return f
}

// Marshal encodes f as YAML.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encoding jobs file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding jobs file: %w", err)
	}
	return buf.Bytes(), nil
}
