// Package gcloud manages the lifecycle of the gcloud CLI:
// version resolution, per-version installation, component
// installation, and credential-file authentication. All
// cloud communication goes through the installed binary;
// nothing here talks to the Cloud Deploy API directly.
package gcloud

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/byte4ever/cloud_deploy_release/release/exec"
)

// Tool is the external binary everything is delegated to.
const Tool = "gcloud"

// The SDK release mirror whose tags track every published
// gcloud version; used to resolve "latest".
const (
	mirrorOwner = "twistedpair"
	mirrorRepo  = "google-cloud-sdk"
)

// Installer manages gcloud installations.
//
// Pattern: Strategy -- lets orchestrator tests substitute
// a fake installation without touching the filesystem.
type Installer interface {
	// IsInstalled reports whether the given version is
	// already present.
	IsInstalled(version string) bool

	// Install makes the given version available and
	// returns its bin directory. Reuses a cached
	// installation when present.
	Install(ctx context.Context, version string) (string, error)

	// InstallComponent installs a named gcloud component
	// (e.g. "alpha" or "beta").
	InstallComponent(ctx context.Context, name string) error

	// AddToPath puts the given bin directory on the
	// executable search path for this process and its
	// children.
	AddToPath(dir string)
}

// VersionResolver resolves the "latest" version marker to
// a concrete version string.
type VersionResolver interface {
	ResolveLatest(ctx context.Context) (string, error)
}

// Resolve turns the user-supplied version input into a
// concrete version: empty or "latest" asks the resolver,
// anything else passes through unchanged.
func Resolve(
	ctx context.Context,
	resolver VersionResolver,
	version string,
) (string, error) {
	const errCtx = "resolving gcloud version"

	if version != "" && version != "latest" {
		return version, nil
	}

	resolved, err := resolver.ResolveLatest(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"resolved latest gcloud version",
		"version", resolved,
	)

	return resolved, nil
}

// CLIInstaller installs gcloud from the official download
// archive, keeping one directory per version so repeated
// runs reuse the cached installation.
type CLIInstaller struct {
	// Root is the directory holding per-version
	// installations.
	Root string
}

// NewCLIInstaller picks the installation root: the runner
// tool cache when running under GitHub Actions, a temp
// directory otherwise.
func NewCLIInstaller() *CLIInstaller {
	root := os.Getenv("RUNNER_TOOL_CACHE")
	if root == "" {
		root = filepath.Join(os.TempDir(), "gcloud-install")
	}

	return &CLIInstaller{
		Root: filepath.Join(root, "gcloud"),
	}
}

// versionDir is where a specific version is unpacked.
func (c *CLIInstaller) versionDir(version string) string {
	return filepath.Join(c.Root, version)
}

// binDir is the executable directory of an installed
// version.
func (c *CLIInstaller) binDir(version string) string {
	return filepath.Join(
		c.versionDir(version), "google-cloud-sdk", "bin",
	)
}

// IsInstalled reports whether the version's gcloud binary
// already exists under the installation root.
func (c *CLIInstaller) IsInstalled(version string) bool {
	_, err := os.Stat(
		filepath.Join(c.binDir(version), Tool),
	)

	return err == nil
}

// Install downloads and unpacks the given version unless a
// cached installation exists, and returns its bin
// directory. The download and extraction are delegated to
// curl and tar, matching how everything else in this
// system drives external tools.
func (c *CLIInstaller) Install(
	ctx context.Context,
	version string,
) (string, error) {
	const errCtx = "installing gcloud"

	if c.IsInstalled(version) {
		slog.Info(
			"reusing cached gcloud installation",
			"version", version,
		)

		return c.binDir(version), nil
	}

	dir := c.versionDir(version)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf(
			"%s: create dir: %w", errCtx, err,
		)
	}

	url, err := downloadURL(version)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	archive := filepath.Join(dir, "google-cloud-cli.tar.gz")

	slog.Info(
		"downloading gcloud",
		"version", version,
		"url", url,
	)

	if _, err := exec.Ex(
		"", "curl",
		"--fail", "--silent", "--show-error",
		"--location",
		"--output", archive,
		url,
	); err != nil {
		return "", fmt.Errorf(
			"%s: download: %w", errCtx, err,
		)
	}

	if _, err := exec.Ex(
		dir, "tar", "-xzf", archive,
	); err != nil {
		return "", fmt.Errorf(
			"%s: extract: %w", errCtx, err,
		)
	}

	if err := os.Remove(archive); err != nil {
		slog.Warn(
			"cannot remove downloaded archive",
			"error", err,
		)
	}

	return c.binDir(version), nil
}

// InstallComponent installs a named component through the
// gcloud already on the path.
func (c *CLIInstaller) InstallComponent(
	ctx context.Context,
	name string,
) error {
	const errCtx = "installing gcloud component"

	result, err := exec.Capture(
		ctx, "", nil,
		Tool, "components", "install", name, "--quiet",
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if result.ExitCode != 0 {
		return fmt.Errorf(
			"%s: %s: exit code %d: %s",
			errCtx, name, result.ExitCode,
			strings.TrimSpace(result.Stderr),
		)
	}

	return nil
}

// AddToPath prepends dir to PATH for this process (and so
// for every child it starts).
func (c *CLIInstaller) AddToPath(dir string) {
	current := os.Getenv("PATH")

	if err := os.Setenv(
		"PATH", dir+string(os.PathListSeparator)+current,
	); err != nil {
		slog.Warn("cannot update PATH", "error", err)
	}
}

// downloadURL builds the official archive URL for the
// current platform.
func downloadURL(version string) (string, error) {
	const errCtx = "building download url"

	var platform string

	switch runtime.GOOS {
	case "linux":
		platform = "linux"
	case "darwin":
		platform = "darwin"
	default:
		return "", fmt.Errorf(
			"%s: unsupported os %q",
			errCtx, runtime.GOOS,
		)
	}

	var arch string

	switch runtime.GOARCH {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "arm"
	default:
		return "", fmt.Errorf(
			"%s: unsupported arch %q",
			errCtx, runtime.GOARCH,
		)
	}

	return fmt.Sprintf(
		"https://dl.google.com/dl/cloudsdk/channels/rapid/"+
			"downloads/google-cloud-cli-%s-%s-%s.tar.gz",
		version, platform, arch,
	), nil
}

// Authenticate points gcloud at the given credential file.
// A non-zero exit is an error carrying the tool's stderr.
func Authenticate(
	ctx context.Context,
	credFile string,
) error {
	const errCtx = "authenticating gcloud"

	result, err := exec.Capture(
		ctx, "", nil,
		Tool, "auth", "login",
		"--brief", "--force",
		"--cred-file="+credFile,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if result.ExitCode != 0 {
		return fmt.Errorf(
			"%s: exit code %d: %s",
			errCtx, result.ExitCode,
			strings.TrimSpace(result.Stderr),
		)
	}

	return nil
}
