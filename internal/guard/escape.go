package guard

import "html"

// Escape replaces <, >, &, ' and " with HTML entities
func Escape(s string) string {
	return html.EscapeString(s)
}

// Unescape is the inverse of Escape
func Unescape(s string) string {
	return html.UnescapeString(s)
}
