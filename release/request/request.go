// Package request validates the step inputs and assembles
// the gcloud argument list for one release creation.
package request

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/cloud_deploy_release/release/kvpairs"
	"github.com/byte4ever/cloud_deploy_release/release/metadata"
)

// Inputs is the raw, untyped input set as declared by the
// step. Key-value list inputs stay textual here; they are
// decoded during Build.
type Inputs struct {
	Name                  string
	DeliveryPipeline      string
	Source                string
	BuildArtifacts        string
	Images                string
	ProjectID             string
	Region                string
	DisableInitialRollout bool
	GCSSourceStagingDir   string
	SkaffoldFile          string
	Annotations           string
	Labels                string
	Description           string
	DeployParameters      string
	Flags                 string
	GcloudComponent       string
	GcloudVersion         string
}

// Invocation is the ordered gcloud argument list derived
// from validated inputs. Component, when non-empty, is the
// very first token; "--format json" is always the forced
// tail so the response stays machine-readable.
type Invocation struct {
	Args []string
}

// ValidationError reports bad, missing, or conflicting
// inputs. Fixing the step configuration is the only
// remedy; the run is never retried.
type ValidationError struct {
	Reason string
}

// Error returns the human-readable reason.
func (e *ValidationError) Error() string {
	return e.Reason
}

// artifactKind tags the validated xor of the
// build_artifacts and images inputs.
type artifactKind int

const (
	artifactBuildList artifactKind = iota
	artifactImages
)

// artifactSource is the single variant downstream code
// handles instead of two nullable strings.
type artifactSource struct {
	kind           artifactKind
	buildArtifacts string
	images         kvpairs.Pairs
}

// Build validates the inputs and assembles the argument
// list. Validation short-circuits on the first failure.
// Warnings (currently only the omitted-region notice) are
// returned for the caller to log; they never fail the run.
func Build(
	in Inputs,
	ctx metadata.Context,
) (Invocation, []string, error) {
	const errCtx = "building release request"

	if in.Name == "" {
		return Invocation{}, nil, &ValidationError{
			Reason: "No release name set.",
		}
	}

	if in.DeliveryPipeline == "" {
		return Invocation{}, nil, &ValidationError{
			Reason: "No delivery pipeline set.",
		}
	}

	var warnings []string

	// Region policy: a missing region is not fatal. The
	// flag is omitted and gcloud falls back to its own
	// configured deploy/region default.
	if in.Region == "" {
		warnings = append(warnings,
			"No region set. The region configured in "+
				"the gcloud tool will be used.",
		)
	}

	artifacts, err := resolveArtifacts(in)
	if err != nil {
		return Invocation{}, nil, err
	}

	component := in.GcloudComponent
	if component != "" &&
		component != "alpha" &&
		component != "beta" {
		return Invocation{}, nil, &ValidationError{
			Reason: "invalid input received for " +
				"gcloud_component: " + component,
		}
	}

	args, err := assembleArgs(in, ctx, artifacts, component)
	if err != nil {
		return Invocation{}, nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return Invocation{Args: args}, warnings, nil
}

// resolveArtifacts enforces the build_artifacts/images
// mutual exclusion and returns the tagged variant.
func resolveArtifacts(
	in Inputs,
) (artifactSource, error) {
	hasBuildArtifacts := in.BuildArtifacts != ""
	hasImages := in.Images != ""

	switch {
	case hasBuildArtifacts && hasImages:
		return artifactSource{}, &ValidationError{
			Reason: "Both `build_artifacts` and " +
				"`images` inputs set - please select " +
				"only one.",
		}

	case !hasBuildArtifacts && !hasImages:
		return artifactSource{}, &ValidationError{
			Reason: "One of `build_artifacts` and " +
				"`images` inputs must be supplied.",
		}

	case hasBuildArtifacts:
		return artifactSource{
			kind:           artifactBuildList,
			buildArtifacts: in.BuildArtifacts,
		}, nil

	default:
		images, err := kvpairs.Decode(in.Images)
		if err != nil {
			return artifactSource{}, &ValidationError{
				Reason: fmt.Sprintf(
					"invalid images input: %v", err,
				),
			}
		}

		if images.Len() == 0 {
			return artifactSource{}, &ValidationError{
				Reason: "One of `build_artifacts` and " +
					"`images` inputs must be supplied.",
			}
		}

		return artifactSource{
			kind:   artifactImages,
			images: images,
		}, nil
	}
}

// assembleArgs produces the deterministic token order. The
// component prefix comes first and "--format json" last;
// everything in between keeps the documented fixed order.
func assembleArgs(
	in Inputs,
	ctx metadata.Context,
	artifacts artifactSource,
	component string,
) ([]string, error) {
	const errCtx = "assembling gcloud arguments"

	var args []string

	if component != "" {
		args = append(args, component)
	}

	args = append(args,
		"deploy", "releases", "create", in.Name,
		"--delivery-pipeline", in.DeliveryPipeline,
	)

	if in.ProjectID != "" {
		args = append(args, "--project", in.ProjectID)
	}

	if in.Region != "" {
		args = append(args, "--region", in.Region)
	}

	switch artifacts.kind {
	case artifactBuildList:
		args = append(args,
			"--build-artifacts",
			artifacts.buildArtifacts,
		)
	case artifactImages:
		args = append(args,
			"--images", artifacts.images.Encode(","),
		)
	}

	if in.Source != "" {
		args = append(args, "--source", in.Source)
	}

	if in.DisableInitialRollout {
		args = append(args, "--disable-initial-rollout")
	}

	if in.GCSSourceStagingDir != "" {
		args = append(args,
			"--gcs-source-staging-dir",
			in.GCSSourceStagingDir,
		)
	}

	if in.SkaffoldFile != "" {
		args = append(args,
			"--skaffold-file", in.SkaffoldFile,
		)
	}

	if in.DeployParameters != "" {
		params, err := kvpairs.Decode(in.DeployParameters)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: deploy_parameters: %w", errCtx, err,
			)
		}

		args = append(args,
			"--deploy-parameters", params.Encode(","),
		)
	}

	annotations, err := mergedAnnotations(in, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	// Defaults guarantee annotations and labels are
	// never empty, so both flags are always emitted.
	args = append(args,
		"--annotations", annotations.Encode(","),
	)

	labels, err := mergedLabels(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	args = append(args, "--labels", labels.Encode(","))

	if in.Description != "" {
		args = append(args,
			"--description", in.Description,
		)
	}

	if in.Flags != "" {
		extra, err := SplitFlags(in.Flags)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: flags: %w", errCtx, err,
			)
		}

		args = append(args, extra...)
	}

	args = append(args, "--format", "json")

	return args, nil
}

// mergedAnnotations combines the default annotations with
// the user-supplied ones; user keys override defaults.
func mergedAnnotations(
	in Inputs,
	ctx metadata.Context,
) (kvpairs.Pairs, error) {
	user, err := kvpairs.Decode(in.Annotations)
	if err != nil {
		return kvpairs.Pairs{}, fmt.Errorf(
			"annotations: %w", err,
		)
	}

	return kvpairs.Merge(
		metadata.DefaultAnnotations(ctx), user,
	), nil
}

// mergedLabels combines the default labels with the
// user-supplied ones, lowercasing keys and values to meet
// the Cloud Deploy label constraints.
func mergedLabels(in Inputs) (kvpairs.Pairs, error) {
	user, err := kvpairs.Decode(in.Labels)
	if err != nil {
		return kvpairs.Pairs{}, fmt.Errorf(
			"labels: %w", err,
		)
	}

	return kvpairs.Merge(
		metadata.DefaultLabels(), user.Lowercased(),
	), nil
}

// SplitFlags tokenizes the free-form flags input. The
// grammar is whitespace-separated words where double or
// single quotes group a span (quotes are stripped);
// "--flag=value" stays a single token. An unterminated
// quote is an error.
func SplitFlags(s string) ([]string, error) {
	const errCtx = "splitting flags"

	var (
		tokens  []string
		current strings.Builder
		quote   rune
		inToken bool
	)

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}

		case r == '"' || r == '\'':
			quote = r
			inToken = true

		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				tokens = append(
					tokens, current.String(),
				)
				current.Reset()

				inToken = false
			}

		default:
			current.WriteRune(r)

			inToken = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf(
			"%s: unterminated quote in %q", errCtx, s,
		)
	}

	if inToken {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}

// ValidateSkaffoldFile parses a local skaffold config to
// catch obvious mistakes before gcloud uploads it. The
// tool re-validates server-side, so callers treat any
// error here as a warning only. An empty path is a no-op.
func ValidateSkaffoldFile(path string) error {
	const errCtx = "validating skaffold file"

	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from step inputs
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var doc map[string]interface{}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf(
			"%s: %s: %w", errCtx, path, err,
		)
	}

	return nil
}
