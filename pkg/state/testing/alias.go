package testing

import "github.com/Byte-Jerry/ocfs2-tools/pkg/state"

// Store is re-declared so suite users need not import pkg/state twice.
type Store = state.Store
