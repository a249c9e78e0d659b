// Package deploy runs the self-update steps triggered by the signed
// repository webhook.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/exeats-api/internal/observability"
)

// Step is one command of the pipeline.
type Step struct {
	Name    string
	Command []string
}

// Runner executes a single step and returns its combined output.
type Runner interface {
	Run(ctx context.Context, step Step) ([]byte, error)
}

// StepError reports the step that stopped the pipeline.
type StepError struct {
	Step   string
	Output string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("deploy step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExecRunner runs steps as host processes in Dir.
type ExecRunner struct {
	Dir string
}

// Run executes the step command.
func (r ExecRunner) Run(ctx context.Context, step Step) ([]byte, error) {
	if len(step.Command) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, step.Command[0], step.Command[1:]...)
	cmd.Dir = r.Dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	return output.Bytes(), err
}

// Pipeline runs its steps in order under a shared timeout.
type Pipeline struct {
	Steps   []Step
	Runner  Runner
	Timeout time.Duration

	logger zerolog.Logger
	tracer trace.Tracer
}

// Settings names the commands of a pipeline built from configuration.
type Settings struct {
	Workdir        string
	Timeout        time.Duration
	PullCommand    string
	MigrateCommand string
	StaticCommand  string
}

// NewPipeline constructs a pipeline. Steps without a command are dropped.
func NewPipeline(steps []Step, runner Runner, timeout time.Duration, logger zerolog.Logger) *Pipeline {
	kept := make([]Step, 0, len(steps))
	for _, step := range steps {
		if len(step.Command) > 0 {
			kept = append(kept, step)
		}
	}

	return &Pipeline{
		Steps:   kept,
		Runner:  runner,
		Timeout: timeout,
		logger:  logger.With().Str("component", "deploy_pipeline").Logger(),
		tracer:  observability.Tracer("deploy"),
	}
}

// NewPipelineFromSettings builds the pull, migrate and static steps run by ExecRunner.
func NewPipelineFromSettings(settings Settings, logger zerolog.Logger) *Pipeline {
	steps := []Step{
		{Name: "pull", Command: strings.Fields(settings.PullCommand)},
		{Name: "migrate", Command: strings.Fields(settings.MigrateCommand)},
		{Name: "static", Command: strings.Fields(settings.StaticCommand)},
	}
	return NewPipeline(steps, ExecRunner{Dir: settings.Workdir}, settings.Timeout, logger)
}

// Run executes every step and stops at the first failure.
func (p *Pipeline) Run(parent context.Context) error {
	ctx, span := p.tracer.Start(parent, "deploy.pipeline.run")
	defer span.End()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	for _, step := range p.Steps {
		start := time.Now()
		output, err := p.Runner.Run(ctx, step)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}

		logger := p.logger.With().
			Str("step", step.Name).
			Dur("duration", time.Since(start)).
			Logger()

		if err != nil {
			observability.DeployRunsTotal().WithLabelValues("failed").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("deploy.failed_step", step.Name))
			logger.Error().Err(err).Str("output", tail(output, 2048)).Msg("deploy step failed")
			return &StepError{Step: step.Name, Output: string(output), Err: err}
		}

		logger.Info().Msg("deploy step completed")
	}

	observability.DeployRunsTotal().WithLabelValues("succeeded").Inc()
	return nil
}

func tail(output []byte, limit int) string {
	if len(output) <= limit {
		return string(output)
	}
	return string(output[len(output)-limit:])
}
