package sources

import (
	"strconv"
	"strings"
)

const (
	ConfigLinkSelectorKey      = "link_selector"
	ConfigTitleSelectorKey     = "title_selector"
	ConfigBodySelectorKey      = "body_selector"
	ConfigPublishedSelectorKey = "published_selector"
	ConfigExcludeSubstringsKey = "exclude_substrings"
	ConfigWaitSelectorKey      = "wait_selector"
	ConfigWaitTimeoutMsKey     = "wait_timeout_ms"
)

// ConfigString returns the trimmed string value for key from src.Config or a fallback.
func ConfigString(src Source, key, fallback string) string {
	if src.Config != nil {
		if raw, ok := src.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

// ConfigStrings returns a list value for key. A YAML sequence and a
// comma-separated string are both accepted; blanks are dropped.
func ConfigStrings(src Source, key string) []string {
	if src.Config == nil {
		return nil
	}
	var parts []string
	switch v := src.Config[key].(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConfigInt returns an integer value for key or fallback.
func ConfigInt(src Source, key string, fallback int) int {
	if src.Config == nil {
		return fallback
	}
	switch v := src.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
