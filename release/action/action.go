// Package action is the thin layer between this step and
// the GitHub Actions runner: typed access to INPUT_*
// environment variables, output publication through the
// GITHUB_OUTPUT file, and workflow-command logging.
package action

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/byte4ever/cloud_deploy_release/release/request"
)

// inputPrefix is how the runner encodes step inputs into
// the environment: uppercase name behind this prefix.
const inputPrefix = "INPUT_"

// LoadInputs reads the declared step inputs from the
// environment into the raw input set.
func LoadInputs() (request.Inputs, error) {
	const errCtx = "loading step inputs"

	k := koanf.New(".")

	provider := env.Provider(
		inputPrefix, ".",
		func(s string) string {
			return strings.ToLower(
				strings.TrimPrefix(s, inputPrefix),
			)
		},
	)

	if err := k.Load(provider, nil); err != nil {
		return request.Inputs{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	disableRollout, err := booleanInput(
		k, "disable_initial_rollout",
	)
	if err != nil {
		return request.Inputs{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return request.Inputs{
		Name:                  k.String("name"),
		DeliveryPipeline:      k.String("delivery_pipeline"),
		Source:                k.String("source"),
		BuildArtifacts:        k.String("build_artifacts"),
		Images:                k.String("images"),
		ProjectID:             k.String("project_id"),
		Region:                k.String("region"),
		DisableInitialRollout: disableRollout,
		GCSSourceStagingDir:   k.String("gcs_source_staging_dir"),
		SkaffoldFile:          k.String("skaffold_file"),
		Annotations:           k.String("annotations"),
		Labels:                k.String("labels"),
		Description:           k.String("description"),
		DeployParameters:      k.String("deploy_parameters"),
		Flags:                 k.String("flags"),
		GcloudComponent:       k.String("gcloud_component"),
		GcloudVersion:         k.String("gcloud_version"),
	}, nil
}

// booleanInput follows the runner's boolean convention:
// "true"/"false" in any casing, empty means false, anything
// else is a configuration error.
func booleanInput(
	k *koanf.Koanf,
	name string,
) (bool, error) {
	raw := strings.TrimSpace(k.String(name))

	switch strings.ToLower(raw) {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	default:
		return false, fmt.Errorf(
			"invalid boolean input %q for %s", raw, name,
		)
	}
}

// SetOutput publishes a named step output by appending to
// the file the runner names in GITHUB_OUTPUT. Multiline
// values use the heredoc form. Outside a runner (no
// GITHUB_OUTPUT) the value is only logged.
func SetOutput(name, value string) error {
	const errCtx = "setting step output"

	slog.Info("output", "name", name, "value", value)

	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		slog.Warn(
			"GITHUB_OUTPUT not set, output not published",
			"name", name,
		)

		return nil
	}

	//nolint:gosec // the runner owns this file
	file, err := os.OpenFile(
		path,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return fmt.Errorf(
			"%s: open %s: %w", errCtx, path, err,
		)
	}

	defer file.Close() //nolint:errcheck

	line := formatOutput(name, value)

	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf(
			"%s: write %s: %w", errCtx, name, err,
		)
	}

	return nil
}

// formatOutput renders one GITHUB_OUTPUT entry, switching
// to the heredoc form for multiline values.
func formatOutput(name, value string) string {
	if !strings.Contains(value, "\n") {
		return name + "=" + value + "\n"
	}

	const delimiter = "ghadelimiter"

	return name + "<<" + delimiter + "\n" +
		value + "\n" + delimiter + "\n"
}

// Warning surfaces a warning in the workflow UI and the
// structured log.
func Warning(msg string) {
	slog.Warn(msg)
	fmt.Println("::warning::" + escapeData(msg))
}

// Fail surfaces the step's single failure message in the
// workflow UI and the structured log.
func Fail(msg string) {
	slog.Error(msg)
	fmt.Println("::error::" + escapeData(msg))
}

// escapeData encodes the characters the workflow-command
// grammar reserves.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")

	return s
}
