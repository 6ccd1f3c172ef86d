package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "casegen.yaml"
	// UserConfigDir is the directory for user-level config, under $HOME.
	UserConfigDir = ".config/casegen"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger   *slog.Logger
	startDir string
}

// NewLoader creates a new configuration loader that searches for project
// config upward from the current directory.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// FromDir makes the project config search start at dir.
func (l *Loader) FromDir(dir string) *Loader {
	l.startDir = dir
	return l
}

// Load loads configuration with layered precedence:
//  1. Default config
//  2. User config (~/.config/casegen/config.yaml)
//  3. Project config (casegen.yaml in the start directory or a parent),
//     or explicitPath when non-empty
//
// ${VAR} references in either file are expanded from the environment. A
// missing explicit file is an error; missing user or project files are not.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	config := DefaultConfig()

	if userPath := l.userConfigPath(); userPath != "" {
		if err := config.MergeFile(userPath); err == nil {
			l.logger.Debug("Loaded user config", "path", userPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	projectPath := explicitPath
	if projectPath == "" {
		projectPath = l.findProjectConfig()
	}
	if projectPath != "" {
		if err := config.MergeFile(projectPath); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", "path", projectPath)
		if config.Workspace == "" && explicitPath == "" {
			config.Workspace = filepath.Dir(projectPath)
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if config.Workspace == "" {
		config.Workspace = l.detectWorkspace()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it
// doesn't exist.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := l.userConfigPath()
	if path == "" {
		return "", errors.New("cannot determine home directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", "path", path)
	return path, nil
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for casegen.yaml in the start directory and
// its parents.
func (l *Loader) findProjectConfig() string {
	dir := l.startDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// detectWorkspace returns the git root of the start directory, falling
// back to the start directory itself.
func (l *Loader) detectWorkspace() string {
	dir := l.startDir
	if dir == "" {
		if cwd, err := os.Getwd(); err == nil {
			dir = cwd
		}
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	if output, err := cmd.Output(); err == nil {
		root := strings.TrimSpace(string(output))
		l.logger.Debug("Auto-detected git root", "path", root)
		return root
	}
	return dir
}
