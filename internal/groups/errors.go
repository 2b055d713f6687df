package groups

import "errors"

var (
	ErrGroupNotFound = errors.New("document group not found")
	ErrItemNotFound  = errors.New("assigned item not found")
	ErrGroupEmpty    = errors.New("document group has no assigned items")
)
