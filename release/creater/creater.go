// Package creater orchestrates one release creation: it
// validates the step inputs, resolves and installs the
// gcloud tool, authenticates, runs the assembled create
// command, parses the response, and publishes the release
// name and console link as step outputs.
package creater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/byte4ever/cloud_deploy_release/release/action"
	"github.com/byte4ever/cloud_deploy_release/release/exec"
	"github.com/byte4ever/cloud_deploy_release/release/gcloud"
	"github.com/byte4ever/cloud_deploy_release/release/metadata"
	"github.com/byte4ever/cloud_deploy_release/release/request"
	"github.com/byte4ever/cloud_deploy_release/release/response"
)

// Telemetry markers passed to the child gcloud process so
// usage is attributed to this automation. They live in the
// subprocess environment scope only; the parent process
// environment is never mutated.
const (
	metricsEnvKey   = "CLOUDSDK_METRICS_ENVIRONMENT"
	metricsEnvValue = "github-actions-create-cloud-deploy-release"

	disablePromptsKey   = "CLOUDSDK_CORE_DISABLE_PROMPTS"
	disablePromptsValue = "1"
)

// Runner executes the assembled gcloud invocation.
//
// Pattern: Strategy -- orchestrator tests substitute a
// canned Result without starting a process.
type Runner interface {
	Run(
		ctx context.Context,
		env map[string]string,
		name string,
		arg ...string,
	) (exec.Result, error)
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(
	ctx context.Context,
	env map[string]string,
	name string,
	arg ...string,
) (exec.Result, error)

// Run delegates to the wrapped function.
func (f RunnerFunc) Run(
	ctx context.Context,
	env map[string]string,
	name string,
	arg ...string,
) (exec.Result, error) {
	return f(ctx, env, name, arg...)
}

// Authenticator points the tool at a credential file.
type Authenticator func(
	ctx context.Context,
	credFile string,
) error

// ExecutionError reports a non-zero exit from the create
// command, carrying the full command line and stderr for
// diagnosis.
type ExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
}

// Error renders the command line and the tool's stderr, or
// a fallback when the tool printed nothing.
func (e *ExecutionError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = fmt.Sprintf(
			"command exited with code %d and no stderr",
			e.ExitCode,
		)
	}

	return fmt.Sprintf(
		"failed to execute gcloud command `%s`: %s",
		e.Command, detail,
	)
}

// Config holds all settings and collaborators for one
// release creation run. Use a Config struct instead of
// many arguments.
type Config struct {
	// Inputs is the raw step input set.
	Inputs request.Inputs

	// Context provides the CI values default annotations
	// are derived from.
	Context metadata.Context

	// Installer manages the gcloud installation.
	Installer gcloud.Installer

	// Resolver resolves the "latest" version marker.
	Resolver gcloud.VersionResolver

	// Authenticate performs credential-file auth. Leave
	// nil for the real tool.
	Authenticate Authenticator

	// CredFile is the credential file path found in the
	// environment; empty means best-effort unauthenticated.
	CredFile string

	// Runner executes the create command. Leave nil for
	// the real subprocess runner.
	Runner Runner

	// Publish writes one named step output. Leave nil
	// for the GITHUB_OUTPUT sink.
	Publish func(name, value string) error

	// Warn reports a non-fatal condition. Leave nil for
	// the workflow-command logger.
	Warn func(msg string)
}

// FailureMessage wraps the triggering error into the single
// failure message this step reports.
func FailureMessage(err error) string {
	return "create-cloud-deploy-release failed with: " +
		err.Error()
}

// Run executes the full release creation workflow and
// returns the parsed outcome. On any failure no outputs
// are published; there is no partial success.
func Run(
	ctx context.Context,
	cfg Config,
) (response.Outcome, error) {
	const errCtx = "creating cloud deploy release"

	cfg = withDefaults(cfg)

	// Step 1: Validate inputs and assemble the command.
	inv, warnings, err := request.Build(
		cfg.Inputs, cfg.Context,
	)
	if err != nil {
		return response.Outcome{}, err
	}

	for _, w := range warnings {
		cfg.Warn(w)
	}

	// Preflight the skaffold config when one is named;
	// gcloud re-validates server-side so a local parse
	// failure is only a warning.
	if cfg.Inputs.SkaffoldFile != "" {
		if skErr := request.ValidateSkaffoldFile(
			cfg.Inputs.SkaffoldFile,
		); skErr != nil {
			cfg.Warn(skErr.Error())
		}
	}

	// Step 2: Resolve and install the tool.
	version, err := gcloud.Resolve(
		ctx, cfg.Resolver, cfg.Inputs.GcloudVersion,
	)
	if err != nil {
		return response.Outcome{}, err
	}

	if !cfg.Installer.IsInstalled(version) {
		slog.Info(
			"installing gcloud", "version", version,
		)
	}

	binDir, err := cfg.Installer.Install(ctx, version)
	if err != nil {
		return response.Outcome{}, fmt.Errorf(
			"%s: install tool: %w", errCtx, err,
		)
	}

	cfg.Installer.AddToPath(binDir)

	if component := cfg.Inputs.GcloudComponent; component != "" {
		if err := cfg.Installer.InstallComponent(
			ctx, component,
		); err != nil {
			return response.Outcome{}, fmt.Errorf(
				"%s: install component: %w", errCtx, err,
			)
		}
	}

	// Step 3: Authenticate when credentials are present.
	// Absence is a warning, not a failure: the tool may
	// already be authenticated by other means.
	if cfg.CredFile != "" {
		if err := cfg.Authenticate(
			ctx, cfg.CredFile,
		); err != nil {
			return response.Outcome{}, err
		}

		slog.Info("authenticated gcloud")
	} else {
		cfg.Warn(
			"No credentials detected, skipping " +
				"authentication",
		)
	}

	// Step 4: Execute the create command. A non-zero
	// exit becomes an ExecutionError; it never throws
	// out of the runner itself.
	env := map[string]string{
		metricsEnvKey:     metricsEnvValue,
		disablePromptsKey: disablePromptsValue,
	}

	result, err := cfg.Runner.Run(
		ctx, env, gcloud.Tool, inv.Args...,
	)
	if err != nil {
		return response.Outcome{}, fmt.Errorf(
			"%s: run tool: %w", errCtx, err,
		)
	}

	if result.ExitCode != 0 {
		return response.Outcome{}, &ExecutionError{
			Command: gcloud.Tool + " " +
				strings.Join(inv.Args, " "),
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	// Step 5: Parse the response.
	outcome, err := response.Parse(result.Stdout)
	if err != nil {
		return response.Outcome{}, err
	}

	// Step 6: Publish outputs.
	if err := cfg.Publish("name", outcome.Name); err != nil {
		return response.Outcome{}, fmt.Errorf(
			"%s: publish name: %w", errCtx, err,
		)
	}

	if err := cfg.Publish("link", outcome.Link); err != nil {
		return response.Outcome{}, fmt.Errorf(
			"%s: publish link: %w", errCtx, err,
		)
	}

	slog.Info(
		"created release",
		"name", outcome.Name,
		"link", outcome.Link,
	)

	return outcome, nil
}

// withDefaults fills the nil collaborators with the real
// implementations.
func withDefaults(cfg Config) Config {
	if cfg.Installer == nil {
		cfg.Installer = gcloud.NewCLIInstaller()
	}

	if cfg.Resolver == nil {
		cfg.Resolver = gcloud.NewGitHubVersionResolver(
			os.Getenv("GITHUB_TOKEN"),
		)
	}

	if cfg.Runner == nil {
		cfg.Runner = RunnerFunc(func(
			ctx context.Context,
			env map[string]string,
			name string,
			arg ...string,
		) (exec.Result, error) {
			return exec.Capture(
				ctx, "", env, name, arg...,
			)
		})
	}

	if cfg.Authenticate == nil {
		cfg.Authenticate = gcloud.Authenticate
	}

	if cfg.Publish == nil {
		cfg.Publish = action.SetOutput
	}

	if cfg.Warn == nil {
		cfg.Warn = action.Warning
	}

	return cfg
}
