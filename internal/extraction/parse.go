package extraction

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

// FallbackReason is the reason attached to users found by the fallback grammar.
const FallbackReason = "Extracted from page content"

var (
	embeddedArray = regexp.MustCompile(`(?s)\[.*\]`)
	// A u/<name> mention not glued to a preceding word ("menu/x" is not a user).
	userMention = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])u/([A-Za-z0-9_-]+)`)
)

// ParseResponse turns a model reply into validated candidates. It tries, in
// order: the first-to-last bracketed JSON array in the reply, the whole reply
// as JSON, and finally the u/<name> mention grammar.
func ParseResponse(reply string) []outreach.UserCandidate {
	reply = strings.TrimSpace(reply)
	if m := embeddedArray.FindString(reply); m != "" {
		if entries, ok := decodeEntries(m); ok {
			return validate(entries)
		}
	}
	if entries, ok := decodeEntries(reply); ok {
		return validate(entries)
	}
	return validate(MentionedUsers(reply))
}

// MentionedUsers applies the fallback grammar: every token matching
// u/[A-Za-z0-9_-]+, deduplicated, in first-seen order.
func MentionedUsers(text string) []outreach.UserCandidate {
	seen := make(map[string]struct{})
	var out []outreach.UserCandidate
	for _, m := range userMention.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, outreach.UserCandidate{
			Username:   name,
			ProfileURL: ProfileURL(name),
			ReasonText: FallbackReason,
		})
	}
	return out
}

// ProfileURL builds the canonical profile link for username.
func ProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return "https://reddit.com/user/" + username
}

// decodeEntries accepts a JSON array of objects, or an object wrapping one
// under "users". Entries that are not objects or lack a username key are
// dropped.
func decodeEntries(raw string) ([]outreach.UserCandidate, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		var wrapped struct {
			Users []json.RawMessage `json:"users"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil || wrapped.Users == nil {
			return nil, false
		}
		items = wrapped.Users
	}
	out := make([]outreach.UserCandidate, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		if _, ok := fields["username"]; !ok {
			continue
		}
		out = append(out, outreach.UserCandidate{
			Username:   stringField(fields, "username"),
			ProfileURL: stringField(fields, "profile_url"),
			ReasonText: stringField(fields, "reason_text"),
		})
	}
	return out, true
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// validate trims every field, drops blank usernames, and fills missing
// profile URLs.
func validate(in []outreach.UserCandidate) []outreach.UserCandidate {
	out := make([]outreach.UserCandidate, 0, len(in))
	for _, c := range in {
		c.Username = strings.TrimSpace(c.Username)
		if c.Username == "" {
			continue
		}
		c.ProfileURL = strings.TrimSpace(c.ProfileURL)
		if c.ProfileURL == "" {
			c.ProfileURL = ProfileURL(c.Username)
		}
		c.ReasonText = strings.TrimSpace(c.ReasonText)
		out = append(out, c)
	}
	return out
}
