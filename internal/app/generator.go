package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/propline/internal/adapters/tabular"
	"github.com/okian/propline/internal/codegen"
	"github.com/okian/propline/internal/config"
	"github.com/okian/propline/internal/domain/model"
	"github.com/okian/propline/internal/domain/projection"
	"github.com/okian/propline/pkg/logger"
)

const (
	outputDirPermission  = 0o750
	outputFilePermission = 0o644
)

// GenerateResult summarises one generator run.
type GenerateResult struct {
	Input       string
	Output      string
	Target      codegen.Target
	Schema      tabular.Schema
	Records     int
	GeneratedAt time.Time
}

// Generator turns the projections file into a source module.
type Generator struct {
	deps
}

// NewGenerator creates a generator.
func NewGenerator(opts ...Option) *Generator {
	return &Generator{deps: newDeps("generator", opts)}
}

// Run reads cfg.Input and writes the rendered module to cfg.Output. Any
// read or parse failure aborts the run without touching the output.
func (g *Generator) Run(ctx context.Context, cfg config.GenerateConfig) (GenerateResult, error) {
	if err := cfg.Validate(); err != nil {
		return GenerateResult{}, err
	}
	target, err := codegen.ParseTarget(cfg.Target)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	start := g.now()

	table, err := tabular.Read(cfg.Input)
	if err != nil {
		g.metrics.RecordRun(JobGenerate, g.now().Sub(start), false, g.now())
		return GenerateResult{}, fmt.Errorf("read %s: %w", cfg.Input, err)
	}

	res := GenerateResult{
		Input:       cfg.Input,
		Output:      cfg.Output,
		Target:      target,
		Schema:      table.Schema,
		Records:     len(table.Rows),
		GeneratedAt: g.now(),
	}

	calc := g.calc
	if calc == nil {
		calc = projection.NewCalculator()
	}
	sigmas := make(map[model.Statistic]float64, len(model.AllStatistics))
	for _, st := range model.AllStatistics {
		sigmas[st] = calc.Fallback(st)
	}

	var buf bytes.Buffer
	err = codegen.Render(&buf, table,
		codegen.WithTarget(target),
		codegen.WithPackage(cfg.Package),
		codegen.WithGeneratedAt(res.GeneratedAt),
		codegen.WithDefaultSigmas(sigmas))
	if err != nil {
		g.metrics.RecordRun(JobGenerate, g.now().Sub(start), false, g.now())
		return GenerateResult{}, err
	}

	if err := writeFile(cfg.Output, buf.Bytes()); err != nil {
		g.metrics.RecordRun(JobGenerate, g.now().Sub(start), false, g.now())
		return GenerateResult{}, err
	}

	end := g.now()
	g.metrics.SetGeneratedRecords(res.Records)
	g.metrics.RecordRun(JobGenerate, end.Sub(start), true, end)
	g.logger.Info(ctx, fmt.Sprintf("wrote %s with %d projections", cfg.Output, res.Records),
		logger.String("target", string(target)),
		logger.String("schema", table.Schema.String()))
	return res, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, outputDirPermission); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, outputFilePermission); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
