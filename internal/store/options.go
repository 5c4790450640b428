package store

import "github.com/sakif/stash/internal/model"

// DefaultPageSize is the number of rows requested per page from each of the
// two item queries (owned, shared-with-me).
const DefaultPageSize = 10

// FailurePolicy decides what happens to local state when a remote mutation
// fails.
type FailurePolicy int

const (
	// Abort records the error and leaves local state untouched.
	Abort FailurePolicy = iota

	// ApplyLocally records the error but applies the local mutation anyway.
	// Availability over consistency: the user sees their change immediately
	// and the divergence is never rolled back.
	ApplyLocally
)

// Op names the item store's mutating operations, for per-operation policy
// configuration.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpShare  Op = "share"
)

// Policies maps each mutating operation to its failure policy.
type Policies map[Op]FailurePolicy

// DefaultPolicies returns the shipped policy table: optimistic for
// create/update/delete, abort for share. The asymmetry is the existing
// contract of the app — share is the one mutation whose local effect is
// only applied after the backend confirms it.
func DefaultPolicies() Policies {
	return Policies{
		OpCreate: ApplyLocally,
		OpUpdate: ApplyLocally,
		OpDelete: ApplyLocally,
		OpShare:  Abort,
	}
}

// policy returns the configured policy for op, defaulting to Abort for
// anything unconfigured.
func (p Policies) policy(op Op) FailurePolicy {
	if p == nil {
		return Abort
	}
	return p[op]
}

// Options configures an ItemStore.
type Options struct {
	// PageSize overrides DefaultPageSize. Zero means the default.
	PageSize int

	// Policies overrides DefaultPolicies. Nil means the defaults.
	Policies Policies

	// FallbackItems, when non-nil, replaces the collection after a failed
	// initial fetch. Meant for development builds (see SampleItems); leave
	// nil in production so a failed fetch keeps the stale-but-present
	// collection instead.
	FallbackItems []model.Item

	// RetryEmptyFetch enables the refetch-after-session-refresh step: when
	// the initial fetch succeeds but returns nothing, refresh the session
	// once and retry the owned-items query. Works around backends that
	// return empty results for a session that went stale.
	RetryEmptyFetch bool
}

func (o Options) pageSize() int {
	if o.PageSize > 0 {
		return o.PageSize
	}
	return DefaultPageSize
}

func (o Options) policies() Policies {
	if o.Policies != nil {
		return o.Policies
	}
	return DefaultPolicies()
}
