package normalize

import "strings"

// Text returns message text as it should be stored and sent: surrounding
// whitespace is trimmed, inner whitespace and line breaks are kept.
func Text(s string) string {
    return strings.TrimSpace(s)
}

// Name collapses runs of whitespace in a person's name to single spaces.
func Name(s string) string {
    return strings.Join(strings.Fields(s), " ")
}
