package chat

import "strings"

// BuildQuery joins the recent user texts and the new input with single
// spaces. usedContext is true exactly when the query differs from input.
func BuildQuery(recent []string, input string) (query string, usedContext bool) {
	parts := append(append([]string(nil), recent...), input)
	query = strings.TrimSpace(strings.Join(parts, " "))
	return query, query != input
}

// recentUserTexts returns the texts of the last n user turns, oldest first.
func recentUserTexts(turns []Turn, n int) []string {
	if n <= 0 {
		return nil
	}
	var out []string
	for i := len(turns) - 1; i >= 0 && len(out) < n; i-- {
		if !turns[i].IsFromAssistant {
			out = append(out, turns[i].Text)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
