package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// validateConfigPath rejects empty, missing and directory paths before parsing.
func validateConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", vpserrors.NewParseError(path, 0, fmt.Errorf("config file is required"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", vpserrors.NewParseError(path, 0, fmt.Errorf("resolve config path: %w", err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", vpserrors.NewParseError(abs, 0, fmt.Errorf("config file does not exist: %w", err))
	}
	if info.IsDir() {
		return "", vpserrors.NewParseError(abs, 0, fmt.Errorf("config path %s is a directory", abs))
	}

	return abs, nil
}
