package chat

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Roles decides who counts as staff or helpful by role ID.
type Roles struct {
	Staff   []string
	Helpful []string
}

func (r Roles) IsStaff(m *Member) bool {
	return hasAnyRole(m, r.Staff)
}

func (r Roles) IsStaffOrHelpful(m *Member) bool {
	return hasAnyRole(m, r.Staff) || hasAnyRole(m, r.Helpful)
}

func hasAnyRole(m *Member, roles []string) bool {
	if m == nil {
		return false
	}
	for _, role := range m.Roles {
		if slices.Contains(roles, role) {
			return true
		}
	}
	return false
}

// Mention renders a user ping.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// Truncate shortens content to the platform message limit, marking the cut with an ellipsis.
func Truncate(content string) string {
	return TruncateTo(content, MaxMessageLength)
}

func TruncateTo(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	const marker = "…"
	runes := []rune(content)
	return strings.TrimRight(string(runes[:limit-1]), " \n") + marker
}
