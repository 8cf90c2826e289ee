package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job is one table export of a batch file.
type Job struct {
	Table   string `yaml:"table"`
	SQL     string `yaml:"sql"`
	SQLFile string `yaml:"sqlfile"`
	Index   string `yaml:"index"`
	RepCol  string `yaml:"repcol"`
}

// LoadJobs reads a YAML batch file: a list of jobs, each naming a table and
// either inline sql or a sqlfile relative to the batch file. Unknown keys
// and duplicate tables are rejected.
func LoadJobs(path string) ([]Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open batch file: %w", err)
	}
	defer f.Close()

	var jobs []Job
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&jobs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("batch file %s has no jobs", path)
		}
		return nil, fmt.Errorf("invalid batch file %s: %w", path, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("batch file %s has no jobs", path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]int, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		job.Table = strings.TrimSpace(job.Table)
		if job.Table == "" {
			return nil, fmt.Errorf("job #%d: table is required", i+1)
		}
		if prev, dup := seen[job.Table]; dup {
			return nil, fmt.Errorf("job #%d: table %q already exported by job #%d", i+1, job.Table, prev)
		}
		seen[job.Table] = i + 1

		hasSQL := strings.TrimSpace(job.SQL) != ""
		hasFile := strings.TrimSpace(job.SQLFile) != ""
		switch {
		case hasSQL && hasFile:
			return nil, fmt.Errorf("job #%d (%s): sql and sqlfile are mutually exclusive", i+1, job.Table)
		case !hasSQL && !hasFile:
			return nil, fmt.Errorf("job #%d (%s): either sql or sqlfile is required", i+1, job.Table)
		case hasFile:
			p := job.SQLFile
			if !filepath.IsAbs(p) {
				p = filepath.Join(base, p)
			}
			content, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("job #%d (%s): unable to read sqlfile: %w", i+1, job.Table, err)
			}
			job.SQL = string(content)
		}
		job.SQL = strings.TrimSpace(job.SQL)
	}

	return jobs, nil
}
