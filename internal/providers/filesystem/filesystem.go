package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
)

// Ops performs local-disk operations rooted at a working directory.
type Ops struct {
	Root string
}

// New creates filesystem operations for the given working directory.
func New(root string) *Ops {
	return &Ops{Root: filepath.Clean(root)}
}

// Exists checks whether a file or directory exists at the absolute path.
func (o *Ops) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates a directory (and parents) if it does not exist.
func (o *Ops) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// Move renames src to dst, creating destination directories as needed.
// Cross-device renames fall back to copy+delete.
func (o *Ops) Move(src, dst string) error {
	if err := o.EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// EXDEV or similar: copy then delete.
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("move %s -> %s: remove source: %w", src, dst, err)
	}
	return nil
}

// Remove deletes a file.
func (o *Ops) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads and decodes a JSON file into v.
func (o *Ops) ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v as indented JSON and writes it, creating parent
// directories as needed. The file is rewritten wholesale.
func (o *Ops) WriteJSON(path string, v interface{}) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := o.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// AppendLine appends a line of text to a file, creating it if missing.
func (o *Ops) AppendLine(path, line string) error {
	if err := o.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ValidateRoot checks that the working directory exists and is usable.
// Returns the list of problems found; empty means valid.
func ValidateRoot(root string) []string {
	info, err := os.Stat(root)
	if err != nil {
		return []string{fmt.Sprintf("directory does not exist: %s", root)}
	}
	if !info.IsDir() {
		return []string{fmt.Sprintf("path is not a directory: %s", root)}
	}

	var issues []string
	probe := filepath.Join(root, ".swiftlabel-probe")
	if f, err := os.Create(probe); err != nil {
		issues = append(issues, fmt.Sprintf("no write permission: %s", root))
	} else {
		f.Close()
		os.Remove(probe)
	}
	if _, err := os.ReadDir(root); err != nil {
		issues = append(issues, fmt.Sprintf("no read permission: %s", root))
	}
	return issues
}
