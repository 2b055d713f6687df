package groups

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores groups and assignments in memory and is safe for
// concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	groups map[string]DocumentGroup
	items  map[string]AssignedItem
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		groups: make(map[string]DocumentGroup),
		items:  make(map[string]AssignedItem),
	}
}

// CreateGroup stores the group.
func (r *MemoryRepo) CreateGroup(ctx context.Context, group DocumentGroup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = group
	return nil
}

// GetGroup returns a group by ID.
func (r *MemoryRepo) GetGroup(ctx context.Context, groupID string) (DocumentGroup, error) {
	if err := ctx.Err(); err != nil {
		return DocumentGroup{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, ok := r.groups[groupID]
	if !ok {
		return DocumentGroup{}, ErrGroupNotFound
	}
	return group, nil
}

// ListGroupsByQuote returns all groups for a quote ordered by group number.
func (r *MemoryRepo) ListGroupsByQuote(ctx context.Context, quoteID string) ([]DocumentGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []DocumentGroup
	for _, group := range r.groups {
		if group.QuoteID == quoteID {
			out = append(out, group)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupNumber < out[j].GroupNumber })
	return out, nil
}

// UpdateGroup replaces the full group row.
func (r *MemoryRepo) UpdateGroup(ctx context.Context, group DocumentGroup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[group.ID]; !ok {
		return ErrGroupNotFound
	}
	group.UpdatedAt = time.Now().UTC()
	r.groups[group.ID] = group
	return nil
}

// DeleteGroup removes the group's assignments, then the group.
func (r *MemoryRepo) DeleteGroup(ctx context.Context, groupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[groupID]; !ok {
		return ErrGroupNotFound
	}
	for id, item := range r.items {
		if item.GroupID == groupID {
			delete(r.items, id)
		}
	}
	delete(r.groups, groupID)
	return nil
}

// CreateItem stores the assignment.
func (r *MemoryRepo) CreateItem(ctx context.Context, item AssignedItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

// GetItem returns an assignment by ID.
func (r *MemoryRepo) GetItem(ctx context.Context, itemID string) (AssignedItem, error) {
	if err := ctx.Err(); err != nil {
		return AssignedItem{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[itemID]
	if !ok {
		return AssignedItem{}, ErrItemNotFound
	}
	return item, nil
}

// UpdateItem replaces the full assignment row.
func (r *MemoryRepo) UpdateItem(ctx context.Context, item AssignedItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return ErrItemNotFound
	}
	r.items[item.ID] = item
	return nil
}

// ListItemsByGroup returns a group's assignments in sequence order.
func (r *MemoryRepo) ListItemsByGroup(ctx context.Context, groupID string) ([]AssignedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AssignedItem
	for _, item := range r.items {
		if item.GroupID == groupID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out, nil
}

// ListItemsByQuote returns all assignments across a quote's groups.
func (r *MemoryRepo) ListItemsByQuote(ctx context.Context, quoteID string) ([]AssignedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AssignedItem
	for _, item := range r.items {
		if item.QuoteID == quoteID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupID == out[j].GroupID {
			return out[i].SequenceOrder < out[j].SequenceOrder
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out, nil
}

// RemoveItem deletes one assignment.
func (r *MemoryRepo) RemoveItem(ctx context.Context, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[itemID]; !ok {
		return ErrItemNotFound
	}
	delete(r.items, itemID)
	return nil
}

// RemoveByTarget deletes any assignment of the exact file/page target within
// the quote, across all groups. Missing targets are not an error.
func (r *MemoryRepo) RemoveByTarget(ctx context.Context, quoteID, fileID string, pageID *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, item := range r.items {
		if item.QuoteID != quoteID || item.FileID != fileID {
			continue
		}
		if !samePage(item.PageID, pageID) {
			continue
		}
		delete(r.items, id)
	}
	return nil
}

func samePage(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
