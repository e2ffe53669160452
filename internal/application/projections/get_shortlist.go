package projections

import (
	"context"
	"sort"
	"time"

	"gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/domain/status"
)

// GetShortlistDeps holds dependencies for the shortlist projection.
type GetShortlistDeps struct {
	MemberStore MemberStore
}

// QueryGetShortlist returns members in the grace window after expiry,
// longest in the shortlist first.
// POST: every returned view has Lifecycle == status.Shortlisted
func QueryGetShortlist(ctx context.Context, today time.Time, deps GetShortlistDeps) ([]MemberView, error) {
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return nil, err
	}
	out := []MemberView{}
	for _, m := range members {
		v := viewOf(m, today)
		if v.Status.Lifecycle == status.Shortlisted {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Status.DaysInShortlist != out[j].Status.DaysInShortlist {
			return out[i].Status.DaysInShortlist > out[j].Status.DaysInShortlist
		}
		return out[i].Member.Remaining > out[j].Member.Remaining
	})
	return out, nil
}
