package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dcheno/flickrup/internal/services"
	"github.com/dcheno/flickrup/internal/shared"
)

func TestSetCacheGet(t *testing.T) {
	t.Run("memoizes the remote photoset list", func(t *testing.T) {
		svc := newMockService()
		svc.sets = []services.Photoset{{ID: "set-1", Title: "Trip"}}
		cache := NewSetCache(svc)

		for i := 0; i < 3; i++ {
			set, err := cache.Get(context.Background(), "Trip")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if set == nil || set.ID != "set-1" {
				t.Fatalf("expected set-1, got %+v", set)
			}
		}

		if svc.listSetCalls != 1 {
			t.Errorf("expected 1 list call, got %d", svc.listSetCalls)
		}
	})

	t.Run("missing set is nil without error", func(t *testing.T) {
		cache := NewSetCache(newMockService())

		set, err := cache.Get(context.Background(), "Nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set != nil {
			t.Errorf("expected nil set, got %+v", set)
		}
	})

	t.Run("propagates list failures", func(t *testing.T) {
		svc := newMockService()
		svc.listSetsErr = fmt.Errorf("%w: rate limited", shared.ErrAPIRequest)
		cache := NewSetCache(svc)

		if _, err := cache.Get(context.Background(), "Trip"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("refresh discards memoized state", func(t *testing.T) {
		svc := newMockService()
		cache := NewSetCache(svc)

		if _, err := cache.Get(context.Background(), "Trip"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		svc.mu.Lock()
		svc.sets = []services.Photoset{{ID: "set-1", Title: "Trip"}}
		svc.mu.Unlock()
		cache.Refresh()

		set, err := cache.Get(context.Background(), "Trip")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set == nil {
			t.Fatal("expected set after refresh")
		}
		if svc.listSetCalls != 2 {
			t.Errorf("expected 2 list calls, got %d", svc.listSetCalls)
		}
	})
}

func TestSetCacheHas(t *testing.T) {
	svc := newMockService()
	svc.sets = []services.Photoset{{ID: "set-1", Title: "Trip"}}
	svc.members["set-1"] = []services.Photo{{ID: "p1", Title: "a.jpg"}}
	cache := NewSetCache(svc)

	set, err := cache.Get(context.Background(), "Trip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("finds members by title and by id", func(t *testing.T) {
		cases := []struct {
			name string
			ref  MemberRef
			want bool
		}{
			{"present title", ByTitle("a.jpg"), true},
			{"absent title", ByTitle("b.jpg"), false},
			{"present id", ByID("p1"), true},
			{"absent id", ByID("p2"), false},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := cache.Has(context.Background(), set, tc.ref)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tc.want {
					t.Errorf("Has = %v, want %v", got, tc.want)
				}
			})
		}
	})

	t.Run("memoizes membership per set", func(t *testing.T) {
		if svc.listPhotCalls != 1 {
			t.Errorf("expected 1 membership fetch, got %d", svc.listPhotCalls)
		}
	})

	t.Run("rejects the zero member reference", func(t *testing.T) {
		if _, err := cache.Has(context.Background(), set, MemberRef{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSetCacheGetOrCreate(t *testing.T) {
	t.Run("creates an absent set once", func(t *testing.T) {
		svc := newMockService()
		cache := NewSetCache(svc)

		set, created, err := cache.GetOrCreate(context.Background(), "Trip", "p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !created || set == nil || set.Title != "Trip" {
			t.Fatalf("expected a created set, got created=%v set=%+v", created, set)
		}

		// Primary photo is a member immediately, no extra fetch.
		present, err := cache.Has(context.Background(), set, ByID("p1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !present {
			t.Error("primary photo should be a member of the new set")
		}
		if svc.listPhotCalls != 0 {
			t.Errorf("membership should be seeded locally, got %d fetches", svc.listPhotCalls)
		}
	})

	t.Run("returns an existing set without creating", func(t *testing.T) {
		svc := newMockService()
		svc.sets = []services.Photoset{{ID: "set-9", Title: "Trip"}}
		cache := NewSetCache(svc)

		set, created, err := cache.GetOrCreate(context.Background(), "Trip", "p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created || set.ID != "set-9" {
			t.Errorf("expected existing set-9, got created=%v set=%+v", created, set)
		}
		if svc.createCalls != 0 {
			t.Errorf("expected no create calls, got %d", svc.createCalls)
		}
	})

	t.Run("racing callers produce exactly one create call", func(t *testing.T) {
		svc := newMockService()
		cache := NewSetCache(svc)

		const callers = 8
		var wg sync.WaitGroup
		errCh := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, _, err := cache.GetOrCreate(context.Background(), "Trip", fmt.Sprintf("p%d", n))
				errCh <- err
			}(i)
		}
		wg.Wait()
		close(errCh)

		for err := range errCh {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if svc.createCalls != 1 {
			t.Errorf("expected exactly 1 create call, got %d", svc.createCalls)
		}
	})
}

func TestSetCacheAdd(t *testing.T) {
	t.Run("adds a new member remotely and locally", func(t *testing.T) {
		svc := newMockService()
		svc.sets = []services.Photoset{{ID: "set-1", Title: "Trip"}}
		cache := NewSetCache(svc)

		set, err := cache.Get(context.Background(), "Trip")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cache.Add(context.Background(), set, "p1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if svc.addCalls != 1 {
			t.Errorf("expected 1 add call, got %d", svc.addCalls)
		}
		present, err := cache.Has(context.Background(), set, ByID("p1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !present {
			t.Error("added photo should be a cached member")
		}
	})

	t.Run("is idempotent for existing members", func(t *testing.T) {
		svc := newMockService()
		svc.sets = []services.Photoset{{ID: "set-1", Title: "Trip"}}
		svc.members["set-1"] = []services.Photo{{ID: "p1", Title: "a.jpg"}}
		cache := NewSetCache(svc)

		set, err := cache.Get(context.Background(), "Trip")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cache.Add(context.Background(), set, "p1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if svc.addCalls != 0 {
			t.Errorf("expected no add calls for an existing member, got %d", svc.addCalls)
		}
	})
}
