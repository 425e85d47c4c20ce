// Package files gives agents read/write access to one directory tree.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KamdynS/agent-contrib/tools"
)

// DefaultRoot is the sandbox used when none is configured.
const DefaultRoot = "sandbox"

// ErrOutsideRoot is returned for paths escaping the sandbox.
var ErrOutsideRoot = errors.New("path escapes sandbox")

// Sandbox resolves relative paths under Root.
type Sandbox struct {
	Root string
}

// NewSandbox creates root when missing.
func NewSandbox(root string) (*Sandbox, error) {
	if root == "" {
		root = DefaultRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Sandbox{Root: real}, nil
}

// Resolve maps name into the sandbox. Relative paths are cleaned against the
// root so ".." cannot climb out; absolute paths must already lie inside it.
// Symlinks are followed before the check, so a link cannot point outside.
func (s *Sandbox) Resolve(name string) (string, error) {
	p := filepath.Clean(name)
	if !filepath.IsAbs(name) {
		p = filepath.Join(s.Root, filepath.Clean(string(filepath.Separator)+name))
	}
	real, err := realPath(p)
	if err != nil {
		return "", err
	}
	if real != s.Root && !strings.HasPrefix(real, s.Root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return real, nil
}

// realPath evaluates symlinks in the longest existing prefix of p and
// appends the rest. A dangling link is an error.
func realPath(p string) (string, error) {
	rest := ""
	for {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(real, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(p); lerr == nil {
			return "", fmt.Errorf("%w: broken link %s", ErrOutsideRoot, filepath.Base(p))
		}
		parent := filepath.Dir(p)
		if parent == p {
			return filepath.Join(p, rest), nil
		}
		rest = filepath.Join(filepath.Base(p), rest)
		p = parent
	}
}

// ReadArgs names a file.
type ReadArgs struct {
	Path string `json:"file_path" jsonschema:"description=Path of the file relative to the sandbox" validate:"required"`
}

// WriteArgs carries file content.
type WriteArgs struct {
	Path   string `json:"file_path" jsonschema:"description=Path of the file relative to the sandbox" validate:"required"`
	Text   string `json:"text" jsonschema:"description=Text to write"`
	Append bool   `json:"append,omitempty" jsonschema:"description=Append instead of overwrite"`
}

// ListArgs names a directory; empty means the root.
type ListArgs struct {
	Dir string `json:"dir_path,omitempty" jsonschema:"description=Directory relative to the sandbox"`
}

// Tools returns read_file, write_file, list_directory and file_delete.
func (s *Sandbox) Tools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc("read_file", "Read file from disk", s.read),
		tools.NewFunc("write_file", "Write file to disk", s.write),
		tools.NewFunc("list_directory", "List files and directories in a specified folder", s.list),
		tools.NewFunc("file_delete", "Delete a file", s.delete),
	}
}

func (s *Sandbox) read(ctx context.Context, a ReadArgs) (string, error) {
	p, err := s.Resolve(a.Path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	return string(b), nil
}

func (s *Sandbox) write(ctx context.Context, a WriteArgs) (string, error) {
	p, err := s.Resolve(a.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if a.Append {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(p, flag, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(a.Text); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return "File written successfully to " + a.Path + ".", nil
}

func (s *Sandbox) list(ctx context.Context, a ListArgs) (string, error) {
	p, err := s.Resolve(a.Dir)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	if len(entries) == 0 {
		return "No files found in directory " + a.Dir, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() {
			n += "/"
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

func (s *Sandbox) delete(ctx context.Context, a ReadArgs) (string, error) {
	p, err := s.Resolve(a.Path)
	if err != nil {
		return "", err
	}
	if p == s.Root {
		return "", fmt.Errorf("%w: refusing to delete the root", ErrOutsideRoot)
	}
	if err := os.Remove(p); err != nil {
		return "Error: " + err.Error(), nil
	}
	return "File deleted successfully: " + a.Path + ".", nil
}
