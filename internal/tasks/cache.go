package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/dcheno/flickrup/internal/services"
	"github.com/dcheno/flickrup/internal/shared"
)

// MemberRef identifies a photoset member by exactly one of title or ID.
// Build values with ByTitle or ByID; the zero value is invalid.
type MemberRef struct {
	title string
	id    string
}

// ByTitle references a member by its remote display title.
func ByTitle(title string) MemberRef {
	return MemberRef{title: title}
}

// ByID references a member by its remotely assigned photo ID.
func ByID(id string) MemberRef {
	return MemberRef{id: id}
}

func (r MemberRef) matches(p services.Photo) bool {
	if r.title != "" {
		return p.Title == r.title
	}
	return p.ID == r.id
}

func (r MemberRef) valid() bool {
	return r.title != "" || r.id != ""
}

// SetCache is a lazily populated, lock-protected view of the remote photosets
// and their membership. One cache is shared by all workers of a run; the
// remote store stays authoritative, the cache only amortizes reads to one
// full fetch per collection per run.
type SetCache struct {
	svc services.Service

	mu         sync.Mutex
	sets       map[string]*services.Photoset // by title
	setsLoaded bool
	members    map[string][]services.Photo // by set ID
}

// NewSetCache creates an empty cache backed by the given remote service.
func NewSetCache(svc services.Service) *SetCache {
	return &SetCache{
		svc:     svc,
		members: make(map[string][]services.Photo),
	}
}

// Get returns the photoset with the given title, fetching and memoizing the
// full remote list on first call. A missing set is (nil, nil): it signals
// "must be created", not an error.
func (c *SetCache) Get(ctx context.Context, title string) (*services.Photoset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(ctx, title)
}

func (c *SetCache) getLocked(ctx context.Context, title string) (*services.Photoset, error) {
	if !c.setsLoaded {
		sets, err := c.svc.ListSets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list photosets: %w", err)
		}
		c.sets = make(map[string]*services.Photoset, len(sets))
		for i := range sets {
			c.sets[sets[i].Title] = &sets[i]
		}
		c.setsLoaded = true
	}
	return c.sets[title], nil
}

// Refresh discards the memoized photoset list and memberships so the next
// read re-fetches remote state.
func (c *SetCache) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setsLoaded = false
	c.sets = nil
	c.members = make(map[string][]services.Photo)
}

// Has reports whether set contains the referenced member, fetching and
// memoizing the set's full membership on first call.
func (c *SetCache) Has(ctx context.Context, set *services.Photoset, ref MemberRef) (bool, error) {
	if !ref.valid() {
		return false, fmt.Errorf("%w: member reference must name a title or an id", shared.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasLocked(ctx, set, ref)
}

func (c *SetCache) hasLocked(ctx context.Context, set *services.Photoset, ref MemberRef) (bool, error) {
	members, err := c.membersLocked(ctx, set)
	if err != nil {
		return false, err
	}
	for _, p := range members {
		if ref.matches(p) {
			return true, nil
		}
	}
	return false, nil
}

func (c *SetCache) membersLocked(ctx context.Context, set *services.Photoset) ([]services.Photo, error) {
	if members, ok := c.members[set.ID]; ok {
		return members, nil
	}
	members, err := c.svc.ListSetPhotos(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos in set %q: %w", set.Title, err)
	}
	if members == nil {
		members = []services.Photo{}
	}
	c.members[set.ID] = members
	return members, nil
}

// GetOrCreate returns the photoset with the given title, creating it remotely
// with primaryPhotoID if absent. The existence check is repeated under the
// lock so two workers racing on a brand-new set produce exactly one create
// call.
func (c *SetCache) GetOrCreate(ctx context.Context, title, primaryPhotoID string) (*services.Photoset, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, err := c.getLocked(ctx, title)
	if err != nil {
		return nil, false, err
	}
	if set != nil {
		return set, false, nil
	}

	set, err = c.svc.CreateSet(ctx, title, primaryPhotoID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create photoset %q: %w", title, err)
	}

	c.sets[set.Title] = set
	// The primary photo is a member of the new set from the start.
	c.members[set.ID] = []services.Photo{{ID: primaryPhotoID}}

	return set, true, nil
}

// Add records photoID as a member of set, adding it remotely first unless it
// is already a member. Idempotent against races where another worker already
// added the same photo.
func (c *SetCache) Add(ctx context.Context, set *services.Photoset, photoID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	present, err := c.hasLocked(ctx, set, ByID(photoID))
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	if err := c.svc.AddToSet(ctx, set.ID, photoID); err != nil {
		return fmt.Errorf("failed to add photo %s to set %q: %w", photoID, set.Title, err)
	}
	c.members[set.ID] = append(c.members[set.ID], services.Photo{ID: photoID})

	return nil
}
