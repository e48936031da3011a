package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

// AppConfig describes one monitored app. ReplyContext is free text handed to
// the composer as drafting background; it is never mutated by the core.
type AppConfig struct {
	Name     string          `json:"name"`
	Platform domain.Platform `json:"platform"`
	// ID is the package name (Google Play) or numeric app ID (App Store)
	ID           string `json:"id"`
	ReplyContext string `json:"replyContext"`
}

// LoadApps reads the app list from a JSON file and resolves file-based reply
// contexts.
func LoadApps(path string) ([]AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read app config %s: %w", path, err)
	}

	var apps []AppConfig
	if err := json.Unmarshal(raw, &apps); err != nil {
		return nil, fmt.Errorf("parse app config %s: %w", path, err)
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("app config %s: at least one app is required", path)
	}

	for i := range apps {
		if err := apps[i].validate(); err != nil {
			return nil, fmt.Errorf("app config %s entry %d: %w", path, i, err)
		}
		resolved, err := resolveReplyContext(apps[i].ReplyContext)
		if err != nil {
			return nil, fmt.Errorf("app %s: %w", apps[i].Name, err)
		}
		apps[i].ReplyContext = resolved
	}

	return apps, nil
}

func (a *AppConfig) validate() error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if a.ID == "" {
		return fmt.Errorf("id is required")
	}
	switch a.Platform {
	case domain.PlatformGooglePlay, domain.PlatformAppStore, domain.PlatformMock:
		return nil
	default:
		return fmt.Errorf("unknown platform %q", a.Platform)
	}
}

// resolveReplyContext reads the context from disk when the value looks like a
// file path (.md/.txt suffix or ./ or / prefix); otherwise the value is the
// context itself.
func resolveReplyContext(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}

	looksLikeFile := strings.HasSuffix(trimmed, ".md") ||
		strings.HasSuffix(trimmed, ".txt") ||
		strings.HasPrefix(trimmed, "./") ||
		strings.HasPrefix(trimmed, "/")
	if !looksLikeFile {
		return trimmed, nil
	}

	path, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve reply context path %s: %w", trimmed, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read reply context %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}
