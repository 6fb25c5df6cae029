package response_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/cloud_deploy_release/release/response"
)

const goodName = "projects/test-project/locations/us-central1/" +
	"deliveryPipelines/delivery-pipeline/releases/release-001"

const goodLink = "https://console.cloud.google.com/deploy/" +
	"delivery-pipelines/us-central1/delivery-pipeline/" +
	"releases/release-001?project=test-project"

func TestParse_singleObject(t *testing.T) {
	t.Parallel()

	out, err := response.Parse(
		`{"name": "` + goodName + `"}`,
	)

	require.NoError(t, err)
	assert.Equal(t, goodName, out.Name)
	assert.Equal(t, goodLink, out.Link)
}

func TestParse_listWithRollout(t *testing.T) {
	t.Parallel()

	// The create call reports a trailing rollout object
	// when an initial rollout is started; only the first
	// element matters.
	raw := `[
		{"name": "` + goodName + `"},
		{"name": "` + goodName + `/rollouts/rollout-1",
		 "state": "IN_PROGRESS"}
	]`

	out, err := response.Parse(raw)

	require.NoError(t, err)
	assert.Equal(t, goodName, out.Name)
	assert.Equal(t, goodLink, out.Link)
}

func TestParse_listMatchesSingleObject(t *testing.T) {
	t.Parallel()

	single, err := response.Parse(
		`{"name": "` + goodName + `"}`,
	)
	require.NoError(t, err)

	list, err := response.Parse(
		`[{"name": "` + goodName + `"}, {"ignored": true}]`,
	)
	require.NoError(t, err)

	assert.Equal(t, single, list)
}

func TestParse_emptyOutputs(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "\n", "{}", "[]"} {
		_, err := response.Parse(raw)

		require.Error(t, err, "input %q", raw)
		assert.ErrorIs(t, err, response.ErrNoOutput)
		assert.Contains(
			t,
			err.Error(),
			"no output from create release command",
		)
	}
}

func TestParse_invalidJSON(t *testing.T) {
	t.Parallel()

	const raw = "Some text to fail"

	_, err := response.Parse(raw)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid json")
	assert.Contains(t, err.Error(), raw)
}

func TestParse_missingName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "object without name",
			raw:  `{"uid": "abc"}`,
		},
		{
			name: "list element without name",
			raw:  `[{"uid": "abc"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := response.Parse(tt.raw)

			require.Error(t, err)
			assert.Contains(
				t,
				err.Error(),
				"couldn't parse release name",
			)
		})
	}
}

func TestParse_unexpectedNameFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "seven fields",
			raw: `{"name": "projects/p/locations/l/` +
				`deliveryPipelines/d/releases"}`,
		},
		{
			name: "nine fields",
			raw: `{"name": "projects/p/locations/l/` +
				`deliveryPipelines/d/releases/r/extra"}`,
		},
		{
			name: "no slashes",
			raw:  `{"name": "release-001"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := response.Parse(tt.raw)

			require.Error(t, err)
			assert.Contains(
				t, err.Error(), "unexpected format",
			)
		})
	}
}
