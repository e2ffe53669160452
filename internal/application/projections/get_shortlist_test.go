package projections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueryGetShortlist checks the longest-lapsed member is listed first
// and members outside the grace window are left out.
func TestQueryGetShortlist(t *testing.T) {
	members := append(roster(),
		memberExpiring("m6", "GYM-0006", "Fale", -10, 500),
		memberExpiring("m7", "GYM-0007", "Gus", -11, 500),
	)
	got, err := QueryGetShortlist(context.Background(), today, GetShortlistDeps{MemberStore: &mockMemberStore{members: members}})
	require.NoError(t, err)
	assert.Equal(t, []string{"GYM-0006", "GYM-0004", "GYM-0003"}, rolls(got))
	assert.Equal(t, 10, got[0].Status.DaysInShortlist)
}

func TestQueryGetShortlist_Empty(t *testing.T) {
	got, err := QueryGetShortlist(context.Background(), today, GetShortlistDeps{MemberStore: &mockMemberStore{}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
