package git_test

import (
	"blocklist/pkg/publish/git"
	"blocklist/pkg/serrors"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// script is a fake git answering commands by their joined arguments.
type script struct {
	calls   []string
	replies map[string]string
	fail    map[string]error
}

func (s *script) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	call := strings.Join(args, " ")
	s.calls = append(s.calls, call)
	if err := s.fail[call]; err != nil {
		return nil, err
	}

	return []byte(s.replies[call]), nil
}

var options = git.Options{Dir: "/repo", Remote: "origin", Branch: "main"}

func TestSync(t *testing.T) {
	tests := []struct {
		name     string
		replies  map[string]string
		expected bool
		calls    []string
	}{
		{
			name: "up to date",
			replies: map[string]string{
				"rev-parse HEAD":        "abc\n",
				"rev-parse origin/main": "abc\n",
			},
			expected: false,
			calls:    []string{"fetch origin main", "rev-parse HEAD", "rev-parse origin/main"},
		},
		{
			name: "remote moved",
			replies: map[string]string{
				"rev-parse HEAD":        "abc\n",
				"rev-parse origin/main": "def\n",
			},
			expected: true,
			calls: []string{
				"fetch origin main", "rev-parse HEAD", "rev-parse origin/main", "pull --ff-only origin main",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &script{replies: tt.replies}
			changed, err := git.NewWithRunner(options, s.run).Sync(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.expected, changed)
			require.Equal(t, tt.calls, s.calls)
		})
	}
}

func TestSync_FetchFails(t *testing.T) {
	s := &script{fail: map[string]error{"fetch origin main": serrors.With(serrors.ErrUnavailable, "offline")}}
	_, err := git.NewWithRunner(options, s.run).Sync(context.Background())
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Len(t, s.calls, 1)
}

func TestPublish(t *testing.T) {
	s := &script{replies: map[string]string{
		"diff --cached --name-only -- lists/a.txt lists/b.txt": "lists/a.txt\n",
	}}
	opts := options
	opts.AuthorName = "Blocklist Bot"
	opts.AuthorEmail = "bot@example.com"

	published, err := git.NewWithRunner(opts, s.run).
		Publish(context.Background(), []string{"lists/a.txt", "lists/b.txt"}, "Update validated blocklists")
	require.NoError(t, err)
	require.True(t, published)
	require.Equal(t, []string{
		"add -- lists/a.txt lists/b.txt",
		"diff --cached --name-only -- lists/a.txt lists/b.txt",
		"-c user.email=bot@example.com -c user.name=Blocklist Bot commit -m Update validated blocklists -- lists/a.txt lists/b.txt",
		"push origin HEAD:main",
	}, s.calls)
}

func TestPublish_NothingStaged(t *testing.T) {
	s := &script{}
	published, err := git.NewWithRunner(options, s.run).Publish(context.Background(), []string{"a.txt"}, "msg")
	require.NoError(t, err)
	require.False(t, published)
	require.Equal(t, []string{"add -- a.txt", "diff --cached --name-only -- a.txt"}, s.calls)
}

func TestPublish_NoFiles(t *testing.T) {
	s := &script{}
	published, err := git.NewWithRunner(options, s.run).Publish(context.Background(), nil, "msg")
	require.NoError(t, err)
	require.False(t, published)
	require.Empty(t, s.calls)
}

func TestPublish_PushFails(t *testing.T) {
	s := &script{
		replies: map[string]string{"diff --cached --name-only -- a.txt": "a.txt"},
		fail:    map[string]error{"push origin HEAD:main": errors.New("rejected")},
	}
	published, err := git.NewWithRunner(options, s.run).Publish(context.Background(), []string{"a.txt"}, "msg")
	require.Error(t, err)
	require.False(t, published)
}

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := git.Exec(context.Background(), dir, args...)
	require.NoError(t, err)

	return strings.TrimSpace(string(out))
}

func TestPublisher_WithGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	work := filepath.Join(root, "work")
	other := filepath.Join(root, "other")
	identity := []string{"-c", "user.name=Test", "-c", "user.email=test@example.com"}

	mustGit(t, root, "init", "--bare", remote)
	mustGit(t, root, "clone", remote, work)

	opts := git.Options{Dir: work, Remote: "origin", Branch: "main", AuthorName: "Test", AuthorEmail: "test@example.com"}
	p := git.New(opts)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(work, "list.txt"), []byte("192.0.2.1/32\n"), 0o644))
	published, err := p.Publish(ctx, []string{"list.txt"}, "Update validated blocklists")
	require.NoError(t, err)
	require.True(t, published)

	published, err = p.Publish(ctx, []string{"list.txt"}, "Update validated blocklists")
	require.NoError(t, err)
	require.False(t, published, "unchanged file must not be committed again")

	changed, err := p.Sync(ctx)
	require.NoError(t, err)
	require.False(t, changed)

	mustGit(t, root, "clone", "--branch", "main", remote, other)
	require.NoError(t, os.WriteFile(filepath.Join(other, "input.txt"), []byte("198.51.100.7\n"), 0o644))
	mustGit(t, other, "add", "input.txt")
	mustGit(t, other, append(identity, "commit", "-m", "new input")...)
	mustGit(t, other, "push", "origin", "HEAD:main")

	changed, err = p.Sync(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.FileExists(t, filepath.Join(work, "input.txt"))
	require.Equal(t, "Update validated blocklists", mustGit(t, work, "log", "-1", "--format=%s", "HEAD~1"))
}
