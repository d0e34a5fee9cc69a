// Package codegen renders a projections table as a typed source module.
package codegen

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/okian/propline/internal/adapters/tabular"
	"github.com/okian/propline/internal/domain/model"
)

// ErrUnknownTarget is returned for unsupported output languages.
var ErrUnknownTarget = errors.New("unknown codegen target")

//go:embed templates/*.tmpl
var templateFS embed.FS

// Target is an output language.
type Target string

const (
	// TypeScript emits an ES module; this is the default.
	TypeScript Target = "typescript"
	// Go emits a gofmt-formatted Go source file.
	Go Target = "go"
)

// ParseTarget accepts "typescript", "ts" or "go" in any case. Empty selects
// TypeScript.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "typescript", "ts":
		return TypeScript, nil
	case "go":
		return Go, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

// Extension returns the conventional file extension for the target.
func (t Target) Extension() string {
	if t == Go {
		return ".go"
	}
	return ".ts"
}

const defaultPackage = "projections"

// Option configures a Render call.
type Option func(*options)

type options struct {
	target      Target
	pkg         string
	generatedAt time.Time
	sigmas      map[model.Statistic]float64
}

// WithTarget selects the output language.
func WithTarget(t Target) Option {
	return func(o *options) {
		if t != "" {
			o.target = t
		}
	}
}

// WithPackage sets the package clause for the Go target.
func WithPackage(name string) Option {
	return func(o *options) {
		if name != "" {
			o.pkg = name
		}
	}
}

// WithGeneratedAt fixes the generation timestamp.
func WithGeneratedAt(t time.Time) Option {
	return func(o *options) {
		o.generatedAt = t
	}
}

// WithDefaultSigmas sets the fallback sigmas emitted as defaultSigma and
// defaultSigmas. Statistics missing from the map, or with a non-positive
// value, keep their built-in default.
func WithDefaultSigmas(sigmas map[model.Statistic]float64) Option {
	return func(o *options) {
		for st, v := range sigmas {
			if v > 0 {
				o.sigmas[st] = v
			}
		}
	}
}

type record struct {
	Player, Stat, Mu, Sigma string
}

type sigma struct {
	Key, Quoted, Value string
}

type view struct {
	Package      string
	HasStat      bool
	HasSigma     bool
	StatKeys     []string
	Records      []record
	Sigmas       []sigma
	DefaultSigma string
	GeneratedAt  string
}

// Render writes the module for table to w. Records keep the table's row
// order, numbers are written in their shortest exact form and the
// generation timestamp is always the last declaration.
func Render(w io.Writer, table tabular.Table, opts ...Option) error {
	o := options{target: TypeScript, pkg: defaultPackage, sigmas: map[model.Statistic]float64{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.generatedAt.IsZero() {
		o.generatedAt = time.Now()
	}

	var quote func(string) string
	switch o.target {
	case TypeScript:
		quote = tsQuote
	case Go:
		if !token.IsIdentifier(o.pkg) {
			return fmt.Errorf("invalid package name %q", o.pkg)
		}
		quote = strconv.Quote
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTarget, o.target)
	}

	tmpl, err := template.New(string(o.target) + ".tmpl").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/"+string(o.target)+".tmpl")
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildView(table, o, quote)); err != nil {
		return fmt.Errorf("render %s: %w", o.target, err)
	}

	out := buf.Bytes()
	if o.target == Go {
		if out, err = format.Source(out); err != nil {
			return fmt.Errorf("format generated go: %w", err)
		}
	}
	_, err = w.Write(out)
	return err
}

func buildView(table tabular.Table, o options, quote func(string) string) view {
	v := view{
		Package:      o.pkg,
		HasStat:      table.Schema.HasStat(),
		HasSigma:     table.Schema.HasSigma(),
		DefaultSigma: number(o.sigma(model.Points)),
		GeneratedAt:  quote(o.generatedAt.Format(time.RFC3339Nano)),
		Records:      make([]record, 0, len(table.Rows)),
	}
	for _, s := range model.AllStatistics {
		v.StatKeys = append(v.StatKeys, quote(s.String()))
		v.Sigmas = append(v.Sigmas, sigma{
			Key:    s.String(),
			Quoted: quote(s.String()),
			Value:  number(o.sigma(s)),
		})
	}
	for _, r := range table.Rows {
		v.Records = append(v.Records, record{
			Player: quote(r.Player),
			Stat:   quote(r.Stat.String()),
			Mu:     number(r.Mu),
			Sigma:  number(r.Sigma),
		})
	}
	return v
}

func (o options) sigma(s model.Statistic) float64 {
	if v, ok := o.sigmas[s]; ok {
		return v
	}
	return s.DefaultSigma()
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// tsQuote relies on JSON string syntax being valid in JavaScript; the
// encoder also escapes U+2028 and U+2029.
func tsQuote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}
