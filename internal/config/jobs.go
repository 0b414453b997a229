package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"lakemerge/internal/domain"
	"lakemerge/internal/table"
)

// jobSpec is the YAML shape of a job definition file.
type jobSpec struct {
	Name               string       `yaml:"name"`
	Strategy           string       `yaml:"strategy"`
	Schedule           string       `yaml:"schedule"`
	Keys               []string     `yaml:"keys"`
	FingerprintExclude []string     `yaml:"fingerprint_exclude"`
	ConflictPolicy     string       `yaml:"conflict_policy"`
	Sources            []tableRef   `yaml:"sources"`
	Target             tableRef     `yaml:"target"`
	Columns            []columnSpec `yaml:"columns"`
}

type tableRef struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
}

type columnSpec struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type"`
	Nullable *bool      `yaml:"nullable"`
	Default  *yaml.Node `yaml:"default"`
}

// LoadJobs parses every *.yaml / *.yml file in dir into validated job
// definitions, sorted by file name for deterministic registration order.
func LoadJobs(dir string) ([]domain.Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	jobs := make([]domain.Job, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		job, err := loadJobFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[job.Name]; dup {
			return nil, fmt.Errorf("%s: job %q already defined in %s", path, job.Name, prev)
		}
		seen[job.Name] = path
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func loadJobFile(path string) (*domain.Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured jobs dir
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var spec jobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	job := domain.Job{
		Name:               spec.Name,
		Strategy:           spec.Strategy,
		Schedule:           spec.Schedule,
		Keys:               spec.Keys,
		FingerprintExclude: spec.FingerprintExclude,
		ConflictPolicy:     spec.ConflictPolicy,
		Target:             domain.Destination{Schema: spec.Target.Schema, Table: spec.Target.Table},
	}
	for _, s := range spec.Sources {
		job.Sources = append(job.Sources, domain.Destination{Schema: s.Schema, Table: s.Table})
	}

	if len(spec.Columns) > 0 {
		fields := make([]table.Field, 0, len(spec.Columns))
		for _, c := range spec.Columns {
			f, err := fieldFromSpec(c)
			if err != nil {
				return nil, fmt.Errorf("%s: column %q: %w", path, c.Name, err)
			}
			fields = append(fields, f)
		}
		schema, err := table.NewSchema(fields...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		job.TargetSchema = schema
	}

	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &job, nil
}

func fieldFromSpec(c columnSpec) (table.Field, error) {
	f := table.Field{
		Name:     c.Name,
		Type:     table.Type(strings.ToUpper(c.Type)),
		Nullable: true,
	}
	if c.Nullable != nil {
		f.Nullable = *c.Nullable
	}
	if !f.Type.Valid() {
		return f, fmt.Errorf("unknown type %q", c.Type)
	}
	if c.Default != nil {
		var v any
		if err := c.Default.Decode(&v); err != nil {
			return f, fmt.Errorf("decode default: %w", err)
		}
		f.Default = v
		f.HasDefault = true
	}
	return f, nil
}
