package config

import (
	_ "embed"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

//go:embed jobs.cue
var jobsSchema string

// JobsFile is the decoded job file.
type JobsFile struct {
	Jobs []*model.Job `json:"jobs"`
}

// Select returns the jobs with the given IDs in file order. No IDs selects
// every job.
func (x *JobsFile) Select(ids []string) ([]*model.Job, error) {
	if len(ids) == 0 {
		return x.Jobs, nil
	}

	wanted := map[types.JobID]bool{}
	for _, id := range ids {
		wanted[types.JobID(id)] = false
	}

	var jobs []*model.Job
	for _, job := range x.Jobs {
		if _, ok := wanted[job.ID]; ok {
			wanted[job.ID] = true
			jobs = append(jobs, job)
		}
	}
	for id, found := range wanted {
		if !found {
			return nil, goerr.Wrap(types.ErrConfiguration, "job not found in job file", goerr.V("job_id", id))
		}
	}
	return jobs, nil
}

type Jobs struct {
	path string
	ids  []string
}

func (x *Jobs) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jobs",
			Usage:       "Job file in CUE or JSON",
			Aliases:     []string{"j"},
			Category:    "Jobs",
			Sources:     cli.EnvVars("DEVLENS_JOBS"),
			Destination: &x.path,
			Required:    true,
		},
		&cli.StringSliceFlag{
			Name:        "job",
			Usage:       "Run only the job with this ID, repeatable",
			Category:    "Jobs",
			Sources:     cli.EnvVars("DEVLENS_JOB"),
			Destination: &x.ids,
		},
	}
}

func (x *Jobs) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("Path", x.path),
		slog.Any("IDs", x.ids),
	)
}

// Load reads the job file, validates it and returns the selected jobs.
func (x *Jobs) Load() ([]*model.Job, error) {
	raw, err := os.ReadFile(x.path)
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to read job file", goerr.V("path", x.path), goerr.V("cause", err.Error()))
	}

	file, err := ParseJobsFile(x.path, raw)
	if err != nil {
		return nil, err
	}
	return file.Select(x.ids)
}

// ParseJobsFile validates raw against the job file schema and decodes it.
// JSON is accepted as CUE.
func ParseJobsFile(filename string, raw []byte) (*JobsFile, error) {
	cctx := cuecontext.New()

	schema := cctx.CompileString(jobsSchema, cue.Filename("jobs.cue"))
	if err := schema.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to compile job file schema")
	}

	data := cctx.CompileBytes(raw, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to parse job file", goerr.V("file", filename), goerr.V("cause", err.Error()))
	}

	value := schema.LookupPath(cue.ParsePath("#JobsFile")).Unify(data)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "invalid job file", goerr.V("file", filename), goerr.V("cause", err.Error()))
	}

	var file JobsFile
	if err := value.Decode(&file); err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to decode job file", goerr.V("file", filename), goerr.V("cause", err.Error()))
	}

	for _, job := range file.Jobs {
		if err := job.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid job", goerr.V("file", filename))
		}
	}
	return &file, nil
}
