package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/usecase"
)

type seedYAML struct {
	Jobs []seedJob `yaml:"jobs"`
}

type seedJob struct {
	Title       string          `yaml:"title"`
	Department  string          `yaml:"department"`
	Description string          `yaml:"description"`
	Status      string          `yaml:"status"`
	Criteria    []seedCriterion `yaml:"criteria"`
}

type seedCriterion struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// seedJobsFromYAML loads default job postings at startup. Jobs whose
// title already exists are skipped, so reruns are idempotent.
func seedJobsFromYAML(ctx domain.Context, jobs usecase.JobService, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("seed file not found: %s", path)
		}
		return err
	}
	var doc seedYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("yaml parse: %w", err)
	}
	if len(doc.Jobs) == 0 {
		return fmt.Errorf("no jobs to seed in %s", path)
	}

	existing, err := jobs.List(ctx, "", 0, 0)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, j := range existing {
		have[strings.ToLower(strings.TrimSpace(j.Title))] = struct{}{}
	}

	var created int
	for _, sj := range doc.Jobs {
		key := strings.ToLower(strings.TrimSpace(sj.Title))
		if _, ok := have[key]; ok {
			continue
		}
		criteria := make([]domain.Criterion, 0, len(sj.Criteria))
		for _, c := range sj.Criteria {
			criteria = append(criteria, domain.Criterion{Name: c.Name, Weight: c.Weight})
		}
		_, err := jobs.Create(ctx, domain.Job{
			Title:       sj.Title,
			Department:  sj.Department,
			Description: sj.Description,
			Status:      domain.JobStatus(sj.Status),
			Criteria:    criteria,
		})
		if err != nil {
			slog.Warn("seed job skipped", slog.String("title", sj.Title), slog.Any("error", err))
			continue
		}
		created++
	}
	slog.Info("seed complete", slog.Int("created", created), slog.Int("declared", len(doc.Jobs)))
	return nil
}
