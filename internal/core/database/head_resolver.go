package db

import (
	"context"
	"fmt"
)

// headResolver maps a free-text crime head label to its stable identifier,
// creating the dimension row on first sight. The insert uses ON CONFLICT DO
// NOTHING, so losing a creation race to a concurrent page transaction just
// means the following re-select finds the winner's row. resolve is
// idempotent for a given label and never produces duplicate labels.
type headResolver struct {
	// find returns (id, true) when a head with the label exists.
	find func(ctx context.Context, name string) (int64, bool, error)
	// insert returns (id, true) when this caller created the row, and
	// (0, false) when a concurrent writer got there first.
	insert func(ctx context.Context, name, category string) (int64, bool, error)
}

func (r headResolver) resolve(ctx context.Context, name, category string) (int64, error) {
	id, ok, err := r.find(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup crime head %q: %w", name, err)
	}
	if ok {
		return id, nil
	}

	id, ok, err = r.insert(ctx, name, category)
	if err != nil {
		return 0, fmt.Errorf("insert crime head %q: %w", name, err)
	}
	if ok {
		return id, nil
	}

	// Conflict: a concurrent transaction created the label first.
	id, ok, err = r.find(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("re-lookup crime head %q: %w", name, err)
	}
	if !ok {
		return 0, fmt.Errorf("crime head %q vanished after insert conflict", name)
	}
	return id, nil
}
