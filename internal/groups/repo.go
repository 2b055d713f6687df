package groups

import "context"

// Repo defines persistence for document groups and their item assignments.
// DeleteGroup removes the group's assignments before the group row.
type Repo interface {
	CreateGroup(ctx context.Context, group DocumentGroup) error
	GetGroup(ctx context.Context, groupID string) (DocumentGroup, error)
	ListGroupsByQuote(ctx context.Context, quoteID string) ([]DocumentGroup, error)
	UpdateGroup(ctx context.Context, group DocumentGroup) error
	DeleteGroup(ctx context.Context, groupID string) error

	CreateItem(ctx context.Context, item AssignedItem) error
	GetItem(ctx context.Context, itemID string) (AssignedItem, error)
	UpdateItem(ctx context.Context, item AssignedItem) error
	ListItemsByGroup(ctx context.Context, groupID string) ([]AssignedItem, error)
	ListItemsByQuote(ctx context.Context, quoteID string) ([]AssignedItem, error)
	RemoveItem(ctx context.Context, itemID string) error
	RemoveByTarget(ctx context.Context, quoteID, fileID string, pageID *string) error
}
