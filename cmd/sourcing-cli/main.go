// Package main implements the sourcing engine's CLI collaborator: a
// thin command runner that reads a JobSpec from a file or flags and
// prints the resulting JobResult as JSON (spec.md §6).
//
// Usage:
//
//	sourcing-cli run --job job.json
//	sourcing-cli run --id job-1 --required-skills go,kubernetes --max-candidates 10
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
	flag "github.com/spf13/pflag"

	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/engine"
	"github.com/outreachly/sourcing-engine/internal/engineerr"
	"github.com/outreachly/sourcing-engine/internal/logging"
	"github.com/outreachly/sourcing-engine/internal/models"
)

// Exit codes, per spec.md §6.
const (
	exitSuccess           = 0
	exitValidationError   = 2
	exitEngineUnavailable = 3
)

func main() {
	logger := logging.SetDefault()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `sourcing-cli - run a candidate sourcing job and print the result

Usage:
  sourcing-cli run --job job.json
  sourcing-cli run --id <id> --required-skills a,b,c [options]

Options:
`)
		flag.PrintDefaults()
	}

	if len(os.Args) < 2 || os.Args[1] != "run" {
		flag.Usage()
		os.Exit(exitValidationError)
	}

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	jobFile := fs.String("job", "", "Path to a JSON file containing the JobSpec")
	id := fs.String("id", "", "Job ID (ignored if --job is set)")
	requiredSkills := fs.String("required-skills", "", "Comma-separated required skills")
	preferredSkills := fs.String("preferred-skills", "", "Comma-separated preferred skills")
	locations := fs.String("locations", "", "Comma-separated location preferences")
	maxCandidates := fs.Int("max-candidates", 10, "Maximum candidates to return")
	includeOutreach := fs.Bool("outreach", false, "Generate outreach messages")
	jobTitle := fs.String("job-title", "", "Open role title, for outreach context")
	jobCompany := fs.String("job-company", "", "Hiring company name, for outreach context")
	_ = fs.Parse(os.Args[2:])

	job, err := buildJobSpec(*jobFile, *id, *requiredSkills, *preferredSkills, *locations, *maxCandidates, *includeOutreach, *jobTitle, *jobCompany)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitValidationError)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: failed to load configuration:", err)
		os.Exit(exitEngineUnavailable)
	}

	eng := engine.New(cfg, logger)

	result, err := eng.SourceCandidates(context.Background(), job)
	if err != nil {
		if engineerr.Is(err, engineerr.KindValidation) {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(exitValidationError)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitEngineUnavailable)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(os.Stderr, "error: failed to encode result:", err)
		os.Exit(exitEngineUnavailable)
	}

	os.Exit(exitSuccess)
}

func buildJobSpec(jobFile, id, required, preferred, locations string, maxCandidates int, includeOutreach bool, jobTitle, jobCompany string) (models.JobSpec, error) {
	if jobFile != "" {
		data, err := os.ReadFile(jobFile)
		if err != nil {
			return models.JobSpec{}, fmt.Errorf("reading job file: %w", err)
		}
		var job models.JobSpec
		if err := json.Unmarshal(data, &job); err != nil {
			return models.JobSpec{}, fmt.Errorf("parsing job file: %w", err)
		}
		if job.ID == "" {
			job.ID = ulid.Make().String()
		}
		return job, nil
	}

	if id == "" {
		id = ulid.Make().String()
	}
	job := models.JobSpec{
		ID:                  id,
		RequiredSkills:      splitCSV(required),
		PreferredSkills:     splitCSV(preferred),
		LocationPreferences: splitCSV(locations),
		MaxCandidates:       maxCandidates,
		IncludeOutreach:     includeOutreach,
		JobTitle:            jobTitle,
		JobCompany:          jobCompany,
	}
	return job, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
