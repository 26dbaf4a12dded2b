package db

import (
	"context"
	"errors"
	"testing"
)

// memHeads backs a headResolver with an in-memory dimension table.
type memHeads struct {
	ids     map[string]int64
	next    int64
	finds   int
	inserts int

	// loseRaceOnce makes the next insert behave as if a concurrent
	// transaction created the row between find and insert.
	loseRaceOnce bool
}

func newMemHeads() *memHeads {
	return &memHeads{ids: map[string]int64{}, next: 1}
}

func (m *memHeads) resolver() headResolver {
	return headResolver{
		find: func(ctx context.Context, name string) (int64, bool, error) {
			m.finds++
			id, ok := m.ids[name]
			return id, ok, nil
		},
		insert: func(ctx context.Context, name, category string) (int64, bool, error) {
			m.inserts++
			if m.loseRaceOnce {
				m.loseRaceOnce = false
				m.ids[name] = m.next
				m.next++
				return 0, false, nil
			}
			id := m.next
			m.next++
			m.ids[name] = id
			return id, true, nil
		},
	}
}

func TestHeadResolverCreatesOnce(t *testing.T) {
	heads := newMemHeads()
	r := heads.resolver()
	ctx := context.Background()

	first, err := r.resolve(ctx, "Theft", "general")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := r.resolve(ctx, "Theft", "general")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first != second {
		t.Errorf("same label resolved to %d then %d", first, second)
	}
	if heads.inserts != 1 {
		t.Errorf("inserts = %d, want 1", heads.inserts)
	}
	if len(heads.ids) != 1 {
		t.Errorf("dimension table has %d rows, want 1", len(heads.ids))
	}
}

func TestHeadResolverLostInsertRace(t *testing.T) {
	heads := newMemHeads()
	heads.loseRaceOnce = true
	r := heads.resolver()

	id, err := r.resolve(context.Background(), "Burglary", "general")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id == 0 {
		t.Fatal("conflict path must re-select the winner's id")
	}
	if heads.finds != 2 {
		t.Errorf("finds = %d, want 2 (miss, then re-select after conflict)", heads.finds)
	}
	if got := heads.ids["Burglary"]; got != id {
		t.Errorf("resolved id %d does not match stored id %d", id, got)
	}
}

func TestHeadResolverFindError(t *testing.T) {
	boom := errors.New("connection refused")
	r := headResolver{
		find: func(ctx context.Context, name string) (int64, bool, error) {
			return 0, false, boom
		},
	}
	if _, err := r.resolve(context.Background(), "Theft", "general"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestHeadResolverVanishedAfterConflict(t *testing.T) {
	r := headResolver{
		find: func(ctx context.Context, name string) (int64, bool, error) {
			return 0, false, nil
		},
		insert: func(ctx context.Context, name, category string) (int64, bool, error) {
			return 0, false, nil
		},
	}
	if _, err := r.resolve(context.Background(), "Theft", "general"); err == nil {
		t.Fatal("expected error when the winner's row cannot be found")
	}
}
