// Package metadata derives the default annotations and
// labels attached to every created release from the CI
// run context.
package metadata

import (
	"os"
	"strings"

	"github.com/byte4ever/cloud_deploy_release/release/kvpairs"
)

// Context is the slice of the CI environment needed to
// build default release metadata.
type Context struct {
	// ServerURL is the base URL of the hosting platform
	// (e.g. "https://github.com").
	ServerURL string
	// RepoOwner is the repository owner or organisation.
	RepoOwner string
	// RepoName is the repository name without owner.
	RepoName string
	// CommitSHA is the commit the workflow runs for.
	CommitSHA string
}

// ContextFromEnv reads the context from the standard
// GitHub Actions environment variables. Missing variables
// yield empty fields; callers decide whether that matters.
func ContextFromEnv() Context {
	owner, name, _ := strings.Cut(
		os.Getenv("GITHUB_REPOSITORY"), "/",
	)

	return Context{
		ServerURL: os.Getenv("GITHUB_SERVER_URL"),
		RepoOwner: owner,
		RepoName:  name,
		CommitSHA: os.Getenv("GITHUB_SHA"),
	}
}

// DefaultAnnotations returns the baseline annotations for
// a release: the commit URL and the bare commit SHA.
func DefaultAnnotations(ctx Context) kvpairs.Pairs {
	var pairs kvpairs.Pairs

	pairs.Set(
		"commit",
		ctx.ServerURL+"/"+ctx.RepoOwner+"/"+
			ctx.RepoName+"/commit/"+ctx.CommitSHA,
	)
	pairs.Set("git-sha", ctx.CommitSHA)

	return pairs
}

// DefaultLabels returns the baseline labels for a release.
// Cloud Deploy labels must be lowercase, so the values are
// guaranteed lowercase here and callers need not fold
// them again.
func DefaultLabels() kvpairs.Pairs {
	var pairs kvpairs.Pairs

	pairs.Set("managed-by", "github-actions")

	return pairs.Lowercased()
}
