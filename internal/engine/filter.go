package engine

import "github.com/alexisbeaulieu97/vpsctl/internal/resource"

// ResourceFilter selects which resources take part in a run.
type ResourceFilter func(resource.Resource) bool

// All selects every resource.
func All() ResourceFilter {
	return func(resource.Resource) bool { return true }
}

// ByGroups selects resources belonging to any of the given groups. No groups
// selects nothing.
func ByGroups(groups ...string) ResourceFilter {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return func(r resource.Resource) bool {
		_, ok := set[r.Group()]
		return ok
	}
}

// ByIDs selects resources with the given ids.
func ByIDs(ids ...string) ResourceFilter {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(r resource.Resource) bool {
		_, ok := set[r.ID()]
		return ok
	}
}

// And selects resources accepted by every filter.
func And(filters ...ResourceFilter) ResourceFilter {
	return func(r resource.Resource) bool {
		for _, f := range filters {
			if f != nil && !f(r) {
				return false
			}
		}
		return true
	}
}
