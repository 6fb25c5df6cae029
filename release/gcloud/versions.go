package gcloud

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v68/github"
)

// GitHubVersionResolver resolves the latest gcloud version
// from the tags of the SDK release mirror on GitHub.
//
// Pattern: Strategy -- implements VersionResolver.
type GitHubVersionResolver struct {
	client *gh.Client
}

// NewGitHubVersionResolver returns a resolver. token is
// optional; anonymous access is enough for the public
// mirror but a token avoids rate limits on busy runners.
func NewGitHubVersionResolver(
	token string,
) *GitHubVersionResolver {
	client := gh.NewClient(nil)

	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &GitHubVersionResolver{client: client}
}

// ResolveLatest returns the newest version tag of the
// mirror, without any leading "v".
func (r *GitHubVersionResolver) ResolveLatest(
	ctx context.Context,
) (string, error) {
	const errCtx = "resolving latest gcloud version"

	tags, _, err := r.client.Repositories.ListTags(
		ctx, mirrorOwner, mirrorRepo,
		&gh.ListOptions{PerPage: 1},
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s: list mirror tags: %w", errCtx, err,
		)
	}

	if len(tags) == 0 || tags[0].GetName() == "" {
		return "", fmt.Errorf(
			"%s: mirror %s/%s has no tags",
			errCtx, mirrorOwner, mirrorRepo,
		)
	}

	return strings.TrimPrefix(
		tags[0].GetName(), "v",
	), nil
}

// VersionResolverFunc adapts a plain function to the
// VersionResolver interface.
type VersionResolverFunc func(
	ctx context.Context,
) (string, error)

// ResolveLatest delegates to the wrapped function.
func (f VersionResolverFunc) ResolveLatest(
	ctx context.Context,
) (string, error) {
	return f(ctx)
}
