package dropout

import "github.com/xraph/dropout/id"

// ID is the identifier type for activities and runs.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
