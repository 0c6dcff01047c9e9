package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/ksavkin/SwiftLabel/internal/shared/paths"
)

// Workspace is the optional per-directory config stored at
// .swiftlabel/config.yaml. Flags beat workspace values, workspace values
// beat environment defaults.
type Workspace struct {
	Classes []string `yaml:"classes"`
	Host    string   `yaml:"host"`
	Port    string   `yaml:"port"`
}

// WorkspacePath returns the config file location for a working directory.
func WorkspacePath(root string) string {
	return filepath.Join(root, paths.SwiftLabelDir, paths.ConfigFile)
}

// LoadWorkspace reads the workspace config. A missing file is not an error;
// it returns nil.
func LoadWorkspace(root string) (*Workspace, error) {
	data, err := os.ReadFile(WorkspacePath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read workspace config: %w", err)
	}

	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse workspace config: %w", err)
	}
	return &ws, nil
}

// SaveWorkspace writes the workspace config so the next invocation can omit
// the class flag.
func SaveWorkspace(root string, ws *Workspace) error {
	data, err := yaml.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to encode workspace config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(WorkspacePath(root)), 0o755); err != nil {
		return err
	}
	return os.WriteFile(WorkspacePath(root), data, 0o644)
}

// Apply overlays workspace values onto the config, leaving unset fields
// untouched.
func (c *Config) Apply(ws *Workspace) {
	if ws == nil {
		return
	}
	if len(ws.Classes) > 0 {
		c.Session.Classes = ws.Classes
	}
	if ws.Host != "" {
		c.Server.Host = ws.Host
	}
	if ws.Port != "" {
		c.Server.Port = ws.Port
	}
}
