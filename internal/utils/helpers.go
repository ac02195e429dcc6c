package utils

// MaskAPIKey masks an API key for safe logging, keeping only a short
// prefix and suffix.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// TruncateString truncates s to at most max bytes, appending an ellipsis
// marker when truncation happened.
func TruncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
