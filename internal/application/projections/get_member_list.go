package projections

import (
	"context"
	"sort"
	"strings"
	"time"

	"gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/application/listutil"
	"gymdesk/internal/domain/status"
)

// MemberListSortColumns are the accepted sort keys.
var MemberListSortColumns = []string{"roll_number", "name", "expiry", "remaining"}

// MemberListFilterKeys are the accepted filter keys.
var MemberListFilterKeys = []string{"status", "payment", "tier"}

// GetMemberListQuery carries input for the member list projection.
type GetMemberListQuery struct {
	Params listutil.ListParams
	Today  time.Time
}

// GetMemberListDeps holds dependencies for the member list projection.
type GetMemberListDeps struct {
	MemberStore MemberStore
}

// MemberListResult is one page of members.
type MemberListResult struct {
	Members []MemberView
	Page    listutil.PageInfo
}

// QueryGetMemberList lists members with their status derived for Today.
// Status and payment filters run after derivation since neither is stored.
// PRE: Today is set
// POST: Members holds one page; Page.Total counts every match
func QueryGetMemberList(ctx context.Context, query GetMemberListQuery, deps GetMemberListDeps) (MemberListResult, error) {
	views, err := matchingViews(ctx, query, deps.MemberStore)
	if err != nil {
		return MemberListResult{}, err
	}
	page := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, len(views))
	return MemberListResult{Members: listutil.Paginate(views, page), Page: page}, nil
}

func matchingViews(ctx context.Context, query GetMemberListQuery, store MemberStore) ([]MemberView, error) {
	p := query.Params
	members, err := store.List(ctx, member.ListFilter{
		Tier:  p.Filters["tier"],
		Query: p.Search,
	})
	if err != nil {
		return nil, err
	}

	wantLifecycle := strings.ToLower(p.Filters["status"])
	wantPayment := strings.ToLower(p.Filters["payment"])
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		v := viewOf(m, query.Today)
		if wantLifecycle != "" && v.Status.Lifecycle != wantLifecycle {
			continue
		}
		if wantPayment != "" && v.Status.Payment != wantPayment {
			continue
		}
		views = append(views, v)
	}
	sortViews(views, p.Sort, p.Dir)
	return views, nil
}

func sortViews(views []MemberView, column, dir string) {
	less := func(a, b MemberView) bool { return a.Member.RollNumber < b.Member.RollNumber }
	switch column {
	case "name":
		less = func(a, b MemberView) bool { return strings.ToLower(a.Member.Name) < strings.ToLower(b.Member.Name) }
	case "expiry":
		less = func(a, b MemberView) bool { return a.Member.ExpiryDate.Before(b.Member.ExpiryDate) }
	case "remaining":
		less = func(a, b MemberView) bool { return a.Member.Remaining < b.Member.Remaining }
	}
	sort.SliceStable(views, func(i, j int) bool {
		if dir == "desc" {
			return less(views[j], views[i])
		}
		return less(views[i], views[j])
	})
}

// IsValidStatusFilter reports whether s can filter the list.
func IsValidStatusFilter(s string) bool {
	return s == "" || status.IsKnownLifecycle(s)
}
