package extraction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  []outreach.UserCandidate
	}{
		{
			name: "embedded array with prose",
			reply: "Here are the users:\n```json\n" +
				`[{"username":" alice ","profile_url":"","reason_text":" I use Acme daily "},` +
				`{"username":"","profile_url":"x"},"junk",{"profile_url":"no-name"}]` +
				"\n```\nHope this helps.",
			want: []outreach.UserCandidate{
				{Username: "alice", ProfileURL: "https://reddit.com/user/alice", ReasonText: "I use Acme daily"},
			},
		},
		{
			name:  "wrapped object",
			reply: `{"users":[{"username":"bob","profile_url":"https://reddit.com/user/bob","reason_text":"switched"}]}`,
			want: []outreach.UserCandidate{
				{Username: "bob", ProfileURL: "https://reddit.com/user/bob", ReasonText: "switched"},
			},
		},
		{
			name:  "empty array",
			reply: "[]",
			want:  []outreach.UserCandidate{},
		},
		{
			name:  "fallback grammar",
			reply: "I think u/carol and /u/dave-2 use it; u/carol again. The menu/item is not a user. [broken json",
			want: []outreach.UserCandidate{
				{Username: "carol", ProfileURL: "https://reddit.com/user/carol", ReasonText: FallbackReason},
				{Username: "dave-2", ProfileURL: "https://reddit.com/user/dave-2", ReasonText: FallbackReason},
			},
		},
		{
			name:  "nothing usable",
			reply: "No users found.",
			want:  []outreach.UserCandidate{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ParseResponse(tc.reply))
		})
	}
}

func TestMentionedUsersKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	got := MentionedUsers("u/zed, u/amy, u/zed, (u/Bo_b)")
	names := make([]string, 0, len(got))
	for _, u := range got {
		names = append(names, u.Username)
	}
	require.Equal(t, []string{"zed", "amy", "Bo_b"}, names)
}

func TestTruncateContent(t *testing.T) {
	t.Parallel()

	short := "short page"
	require.Equal(t, short, TruncateContent(short))

	long := make([]rune, MaxContentRunes+5)
	for i := range long {
		long[i] = 'é'
	}
	got := TruncateContent(string(long))
	require.Equal(t, string(long[:MaxContentRunes])+TruncationMarker, got)

	exact := string(long[:MaxContentRunes])
	require.Equal(t, exact, TruncateContent(exact))
}
