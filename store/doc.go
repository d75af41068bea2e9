// Package store provides the typed, copy-on-write key-value bags that back
// every pipeline context.
//
// A Bag never changes once built. Writers get a new Bag back from With,
// Without and Merge, so a value handed to one pipeline step can never be
// altered by a later one. Reads can be typed through the generic helpers:
//
//	user, err := store.Get[*User](ctx.Assigns(), "current_user")
//	limit := store.GetOrDefault(ctx.Params(), "limit", 50)
//
// Copies are shallow: the bag owns its key set, not the values it points to.
// DeepCopy detaches a value from its source when a private copy is needed.
package store
