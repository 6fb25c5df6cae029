package metadata_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/cloud_deploy_release/release/metadata"
)

func TestDefaultAnnotations(t *testing.T) {
	t.Parallel()

	ctx := metadata.Context{
		ServerURL: "https://github.com",
		RepoOwner: "acme",
		RepoName:  "shop",
		CommitSHA: "deadbeef",
	}

	pairs := metadata.DefaultAnnotations(ctx)

	assert.Equal(
		t,
		"https://github.com/acme/shop/commit/deadbeef",
		pairs.Values["commit"],
	)
	assert.Equal(t, "deadbeef", pairs.Values["git-sha"])
	assert.Equal(
		t, []string{"commit", "git-sha"}, pairs.Order,
	)
}

func TestDefaultLabels_lowercase(t *testing.T) {
	t.Parallel()

	pairs := metadata.DefaultLabels()

	assert.Equal(
		t,
		"github-actions",
		pairs.Values["managed-by"],
	)

	for key, value := range pairs.Values {
		assert.Equal(t, strings.ToLower(key), key)
		assert.Equal(t, strings.ToLower(value), value)
	}
}

func TestContextFromEnv(t *testing.T) {
	t.Setenv("GITHUB_SERVER_URL", "https://github.com")
	t.Setenv("GITHUB_REPOSITORY", "acme/shop")
	t.Setenv("GITHUB_SHA", "deadbeef")

	ctx := metadata.ContextFromEnv()

	assert.Equal(t, "https://github.com", ctx.ServerURL)
	assert.Equal(t, "acme", ctx.RepoOwner)
	assert.Equal(t, "shop", ctx.RepoName)
	assert.Equal(t, "deadbeef", ctx.CommitSHA)
}
