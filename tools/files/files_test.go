package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KamdynS/agent-contrib/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRejectsEscapes(t *testing.T) {
	s, err := NewSandbox(t.TempDir())
	require.NoError(t, err)

	for _, bad := range []string{"/etc/passwd"} {
		_, err := s.Resolve(bad)
		assert.ErrorIs(t, err, ErrOutsideRoot, bad)
	}
	for _, name := range []string{"../../etc/passwd", "a/../../b"} {
		p, err := s.Resolve(name)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(p, s.Root+string(filepath.Separator)), "%s resolved to %s", name, p)
	}
	p, err := s.Resolve("notes/today.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root, "notes", "today.md"), p)
}

func TestResolveFollowsSymlinks(t *testing.T) {
	ctx := context.Background()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s3cret"), 0o644))
	s, err := NewSandbox(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root, "notes"), 0o755))

	require.NoError(t, os.Symlink(outside, filepath.Join(s.Root, "escape")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "new.txt"), filepath.Join(s.Root, "dangling")))
	require.NoError(t, os.Symlink(filepath.Join(s.Root, "notes"), filepath.Join(s.Root, "alias")))

	for _, bad := range []string{"escape/secret.txt", "escape", "escape/sub/new.txt", "dangling"} {
		_, err := s.Resolve(bad)
		assert.ErrorIs(t, err, ErrOutsideRoot, bad)
	}
	p, err := s.Resolve("alias/today.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root, "notes", "today.md"), p)

	reg := tools.NewRegistry(s.Tools()...)
	_, err = reg.Execute(ctx, "read_file", `{"file_path":"escape/secret.txt"}`)
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = reg.Execute(ctx, "write_file", `{"file_path":"dangling","text":"x"}`)
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, statErr := os.Stat(filepath.Join(outside, "new.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSandboxTools(t *testing.T) {
	ctx := context.Background()
	s, err := NewSandbox(filepath.Join(t.TempDir(), "events"))
	require.NoError(t, err)
	reg := tools.NewRegistry(s.Tools()...)

	out, err := reg.Execute(ctx, "write_file", `{"file_path":"plans/lisbon.md","text":"# Lisbon"}`)
	require.NoError(t, err)
	assert.Equal(t, "File written successfully to plans/lisbon.md.", out)
	_, err = reg.Execute(ctx, "write_file", `{"file_path":"plans/lisbon.md","text":"\n- fado","append":true}`)
	require.NoError(t, err)

	out, err = reg.Execute(ctx, "read_file", `{"file_path":"plans/lisbon.md"}`)
	require.NoError(t, err)
	assert.Equal(t, "# Lisbon\n- fado", out)

	out, err = reg.Execute(ctx, "list_directory", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "plans/", out)

	out, err = reg.Execute(ctx, "read_file", `{"file_path":"missing.txt"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Error: ")

	_, err = reg.Execute(ctx, "file_delete", `{"file_path":"plans/lisbon.md"}`)
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(s.Root, "plans", "lisbon.md"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = reg.Execute(ctx, "file_delete", `{"file_path":"/"}`)
	assert.Error(t, err)
}
