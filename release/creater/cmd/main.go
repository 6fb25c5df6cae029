// Command create_cloud_deploy_release submits one Cloud
// Deploy release creation through the gcloud CLI and
// republishes the resulting release name and console link
// as step outputs. Inputs come from the GitHub Actions
// INPUT_* environment; flags override them for local runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/byte4ever/cloud_deploy_release/release/action"
	"github.com/byte4ever/cloud_deploy_release/release/creater"
	"github.com/byte4ever/cloud_deploy_release/release/metadata"
)

func main() {
	if err := run(); err != nil {
		action.Fail(creater.FailureMessage(err))
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running create_cloud_deploy_release"

	inputs, err := action.LoadInputs()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// Flags default to the Actions inputs, so local runs
	// can override any of them.
	name := flag.String(
		"name", inputs.Name,
		"Name of the release to create",
	)
	deliveryPipeline := flag.String(
		"delivery_pipeline", inputs.DeliveryPipeline,
		"Delivery pipeline to attach the release to",
	)
	source := flag.String(
		"source", inputs.Source,
		"Location of the release manifests",
	)
	buildArtifacts := flag.String(
		"build_artifacts", inputs.BuildArtifacts,
		"Path to a Skaffold build artifacts file "+
			"(mutually exclusive with images)",
	)
	images := flag.String(
		"images", inputs.Images,
		"key=value list of image references "+
			"(mutually exclusive with build_artifacts)",
	)
	projectID := flag.String(
		"project_id", inputs.ProjectID,
		"Google Cloud project of the delivery pipeline",
	)
	region := flag.String(
		"region", inputs.Region,
		"Cloud Deploy region",
	)
	disableInitialRollout := flag.Bool(
		"disable_initial_rollout",
		inputs.DisableInitialRollout,
		"Skip the initial rollout of the release",
	)
	gcsSourceStagingDir := flag.String(
		"gcs_source_staging_dir",
		inputs.GCSSourceStagingDir,
		"GCS bucket for staging the source",
	)
	skaffoldFile := flag.String(
		"skaffold_file", inputs.SkaffoldFile,
		"Path to the skaffold file in the source",
	)
	annotations := flag.String(
		"annotations", inputs.Annotations,
		"key=value list of release annotations",
	)
	labels := flag.String(
		"labels", inputs.Labels,
		"key=value list of release labels",
	)
	description := flag.String(
		"description", inputs.Description,
		"Description of the release",
	)
	deployParameters := flag.String(
		"deploy_parameters", inputs.DeployParameters,
		"key=value list of deploy parameters",
	)
	flags := flag.String(
		"flags", inputs.Flags,
		"Extra space-separated gcloud flags",
	)
	gcloudComponent := flag.String(
		"gcloud_component", inputs.GcloudComponent,
		"gcloud component to use: alpha or beta",
	)
	gcloudVersion := flag.String(
		"gcloud_version", inputs.GcloudVersion,
		"gcloud version to install (empty or "+
			"\"latest\" resolves the newest)",
	)

	flag.Parse()

	inputs.Name = *name
	inputs.DeliveryPipeline = *deliveryPipeline
	inputs.Source = *source
	inputs.BuildArtifacts = *buildArtifacts
	inputs.Images = *images
	inputs.ProjectID = *projectID
	inputs.Region = *region
	inputs.DisableInitialRollout = *disableInitialRollout
	inputs.GCSSourceStagingDir = *gcsSourceStagingDir
	inputs.SkaffoldFile = *skaffoldFile
	inputs.Annotations = *annotations
	inputs.Labels = *labels
	inputs.Description = *description
	inputs.DeployParameters = *deployParameters
	inputs.Flags = *flags
	inputs.GcloudComponent = *gcloudComponent
	inputs.GcloudVersion = *gcloudVersion

	cfg := creater.Config{
		Inputs:   inputs,
		Context:  metadata.ContextFromEnv(),
		CredFile: credFileFromEnv(),
	}

	if _, err := creater.Run(
		context.Background(), cfg,
	); err != nil {
		return err
	}

	return nil
}

// credFileFromEnv finds the credential file the auth step
// (or the user) left in the environment. Empty means
// best-effort unauthenticated.
func credFileFromEnv() string {
	if path := os.Getenv("GOOGLE_GHA_CREDS_PATH"); path != "" {
		return path
	}

	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
}
