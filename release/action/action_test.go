package action_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/cloud_deploy_release/release/action"
)

func TestLoadInputs(t *testing.T) {
	t.Setenv("INPUT_NAME", "release-001")
	t.Setenv("INPUT_DELIVERY_PIPELINE", "delivery-pipeline")
	t.Setenv("INPUT_REGION", "us-central1")
	t.Setenv("INPUT_BUILD_ARTIFACTS", "artifacts.json")
	t.Setenv("INPUT_DISABLE_INITIAL_ROLLOUT", "true")
	t.Setenv("INPUT_GCLOUD_COMPONENT", "beta")
	t.Setenv("INPUT_FLAGS", "--verbosity debug")

	in, err := action.LoadInputs()

	require.NoError(t, err)
	assert.Equal(t, "release-001", in.Name)
	assert.Equal(
		t, "delivery-pipeline", in.DeliveryPipeline,
	)
	assert.Equal(t, "us-central1", in.Region)
	assert.Equal(t, "artifacts.json", in.BuildArtifacts)
	assert.True(t, in.DisableInitialRollout)
	assert.Equal(t, "beta", in.GcloudComponent)
	assert.Equal(t, "--verbosity debug", in.Flags)
	assert.Empty(t, in.Images)
}

func TestLoadInputs_booleanVariants(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{raw: "", want: false},
		{raw: "false", want: false},
		{raw: "FALSE", want: false},
		{raw: "true", want: true},
		{raw: "True", want: true},
		{raw: "yes", wantErr: true},
		{raw: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("value "+tt.raw, func(t *testing.T) {
			t.Setenv(
				"INPUT_DISABLE_INITIAL_ROLLOUT", tt.raw,
			)

			in, err := action.LoadInputs()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(
					t,
					err.Error(),
					"invalid boolean input",
				)

				return
			}

			require.NoError(t, err)
			assert.Equal(
				t, tt.want, in.DisableInitialRollout,
			)
		})
	}
}

func TestSetOutput_appendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	t.Setenv("GITHUB_OUTPUT", path)

	require.NoError(t, action.SetOutput("name", "projects/p"))
	require.NoError(t, action.SetOutput("link", "https://x"))

	data, err := os.ReadFile(path) //nolint:gosec // test temp file
	require.NoError(t, err)

	assert.Equal(
		t,
		"name=projects/p\nlink=https://x\n",
		string(data),
	)
}

func TestSetOutput_multilineUsesHeredoc(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	t.Setenv("GITHUB_OUTPUT", path)

	require.NoError(
		t, action.SetOutput("notes", "one\ntwo"),
	)

	data, err := os.ReadFile(path) //nolint:gosec // test temp file
	require.NoError(t, err)

	assert.Equal(
		t,
		"notes<<ghadelimiter\none\ntwo\nghadelimiter\n",
		string(data),
	)
}

func TestSetOutput_withoutRunnerFile(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")

	// Publication is skipped but never fails the run.
	assert.NoError(t, action.SetOutput("name", "value"))
}
