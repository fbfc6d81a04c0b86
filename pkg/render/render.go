package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
)

const (
	validateTimeout = 30 * time.Second
	reloadTimeout   = 30 * time.Second
)

// placeholderRe matches substitution tokens that survived rendering
var placeholderRe = regexp.MustCompile(`\{\{[A-Za-z0-9_]+\}\}`)

// Outcome classifies one apply run
type Outcome string

const (
	// OutcomeApplied: the rendered config passed validation and is live
	OutcomeApplied Outcome = "applied"

	// OutcomeUnchanged: the live config already holds the rendered content
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeRejected: validation failed; the live config was not touched
	OutcomeRejected Outcome = "rejected"
)

// Result is the classified outcome of one Apply
type Result struct {
	Outcome Outcome

	// ValidatorOutput holds the validator's diagnostics verbatim when the
	// outcome is Rejected
	ValidatorOutput string
}

// Rejected reports whether validation refused the rendered config
func (r *Result) Rejected() bool {
	return r.Outcome == OutcomeRejected
}

// Template describes one configuration artifact to render and apply
type Template struct {
	// Name identifies the template in logs and metrics; defaults to the
	// live path's base name
	Name string

	// Source is the template text with {{KEY}} placeholders
	Source string

	// Values substituted for the placeholders
	Values map[string]string

	// LivePath is the destination the service reads
	LivePath string

	// Mode for the rendered file; zero means 0644
	Mode os.FileMode

	// Validate is the argv of the service's own syntax checker, run against
	// the staged artifact before the swap. Empty skips validation.
	Validate []string

	// Reload is the argv that signals the service after a successful swap.
	// Empty skips the signal.
	Reload []string
}

// StagedPath returns where a template for the given live path is staged.
// Staging lives in the live path's own directory so the final rename never
// crosses a filesystem boundary.
func StagedPath(live string) string {
	return live + ".staged"
}

// Render substitutes {{KEY}} placeholders by exact string replacement. A
// placeholder with no value is an error: a config with a literal {{DOMAIN}}
// in it helps nobody.
func Render(source string, values map[string]string) (string, error) {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	out := strings.NewReplacer(pairs...).Replace(source)

	if token := placeholderRe.FindString(out); token != "" {
		return "", fmt.Errorf("unresolved placeholder %s", token)
	}
	return out, nil
}

// Renderer renders templates and applies them to their live paths through
// a stage, validate, swap, reload cycle. It is the only component that
// writes live configuration paths.
type Renderer struct {
	runner command.Runner
	broker *events.Broker
	logger zerolog.Logger
}

// NewRenderer creates a renderer executing validators and reload signals
// through the given runner
func NewRenderer(runner command.Runner) *Renderer {
	return &Renderer{
		runner: runner,
		logger: log.WithComponent("render"),
	}
}

// WithBroker publishes apply events to the given broker. Rejections are
// published by callers, which carry the module and instance context.
func (r *Renderer) WithBroker(broker *events.Broker) *Renderer {
	r.broker = broker
	return r
}

// Apply renders the template, stages it next to the live path, runs the
// service's validator against the staged artifact, and only then renames
// it into place and signals a reload. A rejected validation discards the
// staged artifact and leaves the live path byte-for-byte untouched, so the
// live config is always the previous good version or the new good version,
// never a broken intermediate.
func (r *Renderer) Apply(ctx context.Context, tmpl *Template) (*Result, error) {
	if tmpl.LivePath == "" {
		return nil, fmt.Errorf("template requires a live path")
	}
	name := tmpl.Name
	if name == "" {
		name = filepath.Base(tmpl.LivePath)
	}
	logger := r.logger.With().Str("template", name).Str("path", tmpl.LivePath).Logger()

	rendered, err := Render(tmpl.Source, tmpl.Values)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}

	if current, err := os.ReadFile(tmpl.LivePath); err == nil && string(current) == rendered {
		logger.Debug().Msg("Config already current")
		metrics.ConfigAppliesTotal.WithLabelValues(name, string(OutcomeUnchanged)).Inc()
		return &Result{Outcome: OutcomeUnchanged}, nil
	}

	mode := tmpl.Mode
	if mode == 0 {
		mode = 0o644
	}
	staged := StagedPath(tmpl.LivePath)
	if err := os.WriteFile(staged, []byte(rendered), mode); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", name, err)
	}
	if err := os.Chmod(staged, mode); err != nil {
		os.Remove(staged)
		return nil, fmt.Errorf("failed to stage %s: %w", name, err)
	}
	// A rejected or failed run must not leave the staged artifact behind;
	// after a successful swap this is a no-op
	defer os.Remove(staged)

	if len(tmpl.Validate) > 0 {
		cmd := command.New(tmpl.Validate[0], tmpl.Validate[1:]...).WithTimeout(validateTimeout)
		result, err := r.runner.Run(ctx, cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to run validator for %s: %w", name, err)
		}
		if !result.Success() {
			output := result.Output()
			logger.Warn().Str("validator", cmd.String()).Str("output", output).Msg("Config rejected by validator")
			metrics.ConfigAppliesTotal.WithLabelValues(name, string(OutcomeRejected)).Inc()
			return &Result{Outcome: OutcomeRejected, ValidatorOutput: output}, nil
		}
	}

	if err := os.Rename(staged, tmpl.LivePath); err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", name, err)
	}
	logger.Info().Msg("Config applied")

	if len(tmpl.Reload) > 0 {
		cmd := command.New(tmpl.Reload[0], tmpl.Reload[1:]...).WithTimeout(reloadTimeout)
		result, err := r.runner.Run(ctx, cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to reload after applying %s: %w", name, err)
		}
		if !result.Success() {
			return nil, fmt.Errorf("failed to reload after applying %s: %s", name, result.Output())
		}
		logger.Info().Str("signal", cmd.String()).Msg("Service reloaded")
	}

	if r.broker != nil {
		r.broker.Publish(events.New(events.EventConfigApplied, name).
			WithMeta("path", tmpl.LivePath))
	}
	metrics.ConfigAppliesTotal.WithLabelValues(name, string(OutcomeApplied)).Inc()
	return &Result{Outcome: OutcomeApplied}, nil
}
