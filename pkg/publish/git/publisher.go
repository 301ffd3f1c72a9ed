// Package git implements publish.Publisher on top of the git command line
// client. The working copy must already be cloned and have the configured
// remote; credentials are whatever the git client is configured with.
package git

import (
	"blocklist/pkg/logger"
	"blocklist/pkg/publish"
	"blocklist/pkg/serrors"
	"bytes"
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes git with args inside dir and returns its standard output.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Options configure a Publisher.
type Options struct {
	// Dir is the working copy.
	Dir string
	// Remote and Branch name the upstream that is pulled from and pushed to.
	Remote string
	Branch string
	// AuthorName and AuthorEmail override the configured git identity when set.
	AuthorName  string
	AuthorEmail string
}

// Publisher commits and pushes files through git.
type Publisher struct {
	options Options
	run     Runner
}

// New creates a Publisher running the git binary found in PATH.
func New(options Options) *Publisher {
	return NewWithRunner(options, Exec)
}

// NewWithRunner creates a Publisher executing git commands through run.
func NewWithRunner(options Options, run Runner) *Publisher {
	return &Publisher{options: options, run: run}
}

// Exec runs the git binary. A failed command is returned as an error of kind
// serrors.ErrUnavailable including git's standard error.
func Exec(ctx context.Context, dir string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, serrors.Wrap(serrors.ErrUnavailable, err, "git %s failed: %s",
			strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}

	return out, nil
}

func (p *Publisher) git(ctx context.Context, args ...string) (string, error) {
	logger.Debug(ctx, "running git", zap.Strings("args", args))
	out, err := p.run(ctx, p.options.Dir, args...)

	return strings.TrimSpace(string(out)), err
}

func (p *Publisher) upstream() string {
	return p.options.Remote + "/" + p.options.Branch
}

// Sync fetches the upstream branch and fast-forwards the working copy when
// upstream moved.
func (p *Publisher) Sync(ctx context.Context) (bool, error) {
	if _, err := p.git(ctx, "fetch", p.options.Remote, p.options.Branch); err != nil {
		return false, err
	}

	local, err := p.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return false, err
	}
	remote, err := p.git(ctx, "rev-parse", p.upstream())
	if err != nil {
		return false, err
	}
	if local == remote {
		logger.Info(ctx, "working copy is up to date", zap.String("commit", local))

		return false, nil
	}

	if _, err := p.git(ctx, "pull", "--ff-only", p.options.Remote, p.options.Branch); err != nil {
		return false, err
	}
	logger.Info(ctx, "pulled remote changes", zap.String("from", local), zap.String("to", remote))

	return true, nil
}

// Publish stages files, commits them with message and pushes to upstream.
// Nothing is committed when the staged files equal HEAD.
func (p *Publisher) Publish(ctx context.Context, files []string, message string) (bool, error) {
	if len(files) == 0 {
		return false, nil
	}

	if _, err := p.git(ctx, append([]string{"add", "--"}, files...)...); err != nil {
		return false, err
	}

	staged, err := p.git(ctx, append([]string{"diff", "--cached", "--name-only", "--"}, files...)...)
	if err != nil {
		return false, err
	}
	if staged == "" {
		logger.Info(ctx, "no changes to commit")

		return false, nil
	}

	commit := []string{"commit", "-m", message, "--"}
	if p.options.AuthorName != "" {
		commit = append([]string{"-c", "user.name=" + p.options.AuthorName}, commit...)
	}
	if p.options.AuthorEmail != "" {
		commit = append([]string{"-c", "user.email=" + p.options.AuthorEmail}, commit...)
	}
	if _, err := p.git(ctx, append(commit, files...)...); err != nil {
		return false, err
	}

	if _, err := p.git(ctx, "push", p.options.Remote, "HEAD:"+p.options.Branch); err != nil {
		return false, err
	}
	logger.Info(ctx, "changes committed and pushed",
		zap.Strings("files", strings.Fields(staged)),
		zap.String("remote", p.options.Remote),
		zap.String("branch", p.options.Branch))

	return true, nil
}

// Ensure Publisher conforms to the publish.Publisher interface at compile time.
var _ publish.Publisher = (*Publisher)(nil)
