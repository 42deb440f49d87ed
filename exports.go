package hold

import "github.com/xraph/hold/types"

// Re-export common types for convenience so users don't have to import types package.

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Entity constructors
var (
	NewEntity   = types.NewEntity
	NewEntityAt = types.NewEntityAt
)
