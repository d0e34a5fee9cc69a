// Package tabular reads and writes the projections CSV shared by the
// aggregator and the generator.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/propline/internal/domain/model"
)

// ErrMalformed is returned for files that do not match a known schema.
var ErrMalformed = errors.New("malformed projections file")

const (
	directoryPermission = 0o750
	filePermission      = 0o644
)

// Schema is one of the supported column layouts.
type Schema int

const (
	// MuSigma is player,mu,sigma.
	MuSigma Schema = iota
	// PerStat is player,stat,mu,sigma.
	PerStat
	// PointsOnly is player,points: mean points only.
	PointsOnly
)

// Header returns the column names written for the schema.
func (s Schema) Header() []string {
	switch s {
	case PerStat:
		return []string{"player", "stat", "mu", "sigma"}
	case PointsOnly:
		return []string{"player", "points"}
	default:
		return []string{"player", "mu", "sigma"}
	}
}

// HasStat reports whether rows carry a statistic tag.
func (s Schema) HasStat() bool { return s == PerStat }

// HasSigma reports whether rows carry a sigma column.
func (s Schema) HasSigma() bool { return s != PointsOnly }

func (s Schema) String() string { return strings.Join(s.Header(), ",") }

// SchemaFor picks the layout for a statistic set. override is one of
// "", "auto", "points", "mu_sigma", "per_stat". The single-stat layouts only
// hold a points-only set.
func SchemaFor(stats []model.Statistic, override string) (Schema, error) {
	pointsOnly := len(stats) == 1 && stats[0] == model.Points
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "", "auto":
		if pointsOnly {
			return MuSigma, nil
		}
		return PerStat, nil
	case "per_stat":
		return PerStat, nil
	case "mu_sigma":
		if !pointsOnly {
			return 0, fmt.Errorf("schema mu_sigma holds only PTS, got %v", stats)
		}
		return MuSigma, nil
	case "points":
		if !pointsOnly {
			return 0, fmt.Errorf("schema points holds only PTS, got %v", stats)
		}
		return PointsOnly, nil
	}
	return 0, fmt.Errorf("unknown schema %q", override)
}

// Row is one parsed data row.
type Row struct {
	Player string
	Stat   model.Statistic // empty unless the schema carries a stat column
	Mu     float64
	Sigma  float64 // zero for PointsOnly
}

// Table is a parsed projections file.
type Table struct {
	Schema Schema
	Rows   []Row
}

// Write replaces path with the projections in the given schema. Numeric
// fields are written with two decimals.
func Write(path string, schema Schema, projections []model.Projection) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	if err := Encode(f, schema, projections); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Encode writes header and rows to w.
func Encode(w io.Writer, schema Schema, projections []model.Projection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, p := range projections {
		if err := cw.Write(record(schema, p)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(schema Schema, p model.Projection) []string {
	mu := strconv.FormatFloat(p.Mu, 'f', 2, 64)
	sigma := strconv.FormatFloat(p.Sigma, 'f', 2, 64)
	switch schema {
	case PerStat:
		return []string{p.Player, p.Stat.String(), mu, sigma}
	case PointsOnly:
		return []string{p.Player, mu}
	default:
		return []string{p.Player, mu, sigma}
	}
}

// Read parses the file at path.
func Read(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open projections file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Decode parses a projections CSV. The schema is detected from the header,
// whose columns may appear in any order and any case. Row order is kept.
func Decode(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	if err != nil {
		return Table{}, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[h] = i
	}

	t := Table{}
	switch {
	case has(cols, "player", "stat", "mu", "sigma"):
		t.Schema = PerStat
	case has(cols, "player", "mu", "sigma"):
		t.Schema = MuSigma
	case has(cols, "player", "points"):
		t.Schema = PointsOnly
	default:
		return Table{}, fmt.Errorf("%w: header %q matches no schema", ErrMalformed, strings.Join(header, ","))
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		row, err := parseRow(t.Schema, cols, rec)
		if err != nil {
			return Table{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func parseRow(schema Schema, cols map[string]int, rec []string) (Row, error) {
	var (
		row Row
		err error
	)
	row.Player = strings.TrimSpace(rec[cols["player"]])
	if row.Player == "" {
		return Row{}, errors.New("empty player")
	}

	switch schema {
	case PointsOnly:
		if row.Mu, err = parseNumber("points", rec[cols["points"]]); err != nil {
			return Row{}, err
		}
		return row, nil
	case PerStat:
		if row.Stat, err = model.ParseStatistic(rec[cols["stat"]]); err != nil {
			return Row{}, err
		}
	}
	if row.Mu, err = parseNumber("mu", rec[cols["mu"]]); err != nil {
		return Row{}, err
	}
	if row.Sigma, err = parseNumber("sigma", rec[cols["sigma"]]); err != nil {
		return Row{}, err
	}
	return row, nil
}

func parseNumber(col, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", col, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s %q is not finite", col, s)
	}
	return v, nil
}

func has(cols map[string]int, names ...string) bool {
	for _, n := range names {
		if _, ok := cols[n]; !ok {
			return false
		}
	}
	return true
}
