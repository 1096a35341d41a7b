package models

// Top-level BuildContext keys. The core treats the context as opaque except
// where it sanitizes or fingerprints specific sections.
const (
	KeyBuildInfo     = "build_info"
	KeyErrorInfo     = "error_info"
	KeyLogExcerpt    = "log_excerpt"
	KeyEnvironment   = "environment"
	KeyPipelineInfo  = "pipeline_info"
	KeyGitInfo       = "git_info"
	KeyTimingInfo    = "timing_info"
	KeyCustomContext = "custom_context"
	KeyMetadata      = "metadata"
)

// BuildContext is the structured record assembled from environment, log and
// git sources for a single failed command. Values are arbitrarily nested
// maps, slices and scalars as decoded from JSON.
type BuildContext map[string]any

// Section returns a nested map section, or nil if absent or not a map.
func (c BuildContext) Section(key string) map[string]any {
	if c == nil {
		return nil
	}
	section, _ := c[key].(map[string]any)
	return section
}

// StringAt returns a string value from a nested section, or "" if absent.
func (c BuildContext) StringAt(section, key string) string {
	s := c.Section(section)
	if s == nil {
		return ""
	}
	v, _ := s[key].(string)
	return v
}

// String returns a top-level string value, or "" if absent.
func (c BuildContext) String(key string) string {
	if c == nil {
		return ""
	}
	v, _ := c[key].(string)
	return v
}

// IntAt returns an integer value from a nested section. JSON decoding yields
// float64 for numbers, so both forms are accepted.
func (c BuildContext) IntAt(section, key string) int {
	s := c.Section(section)
	if s == nil {
		return 0
	}
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// DeepCopy returns a structurally isomorphic copy of the context. The copy
// never aliases any map or slice of the original.
func (c BuildContext) DeepCopy() BuildContext {
	if c == nil {
		return nil
	}
	return BuildContext(deepCopyValue(map[string]any(c)).(map[string]any))
}

func deepCopyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		copied := make(map[string]any, len(value))
		for k, item := range value {
			copied[k] = deepCopyValue(item)
		}
		return copied
	case []any:
		copied := make([]any, len(value))
		for i, item := range value {
			copied[i] = deepCopyValue(item)
		}
		return copied
	default:
		return value
	}
}
