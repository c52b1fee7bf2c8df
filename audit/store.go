package audit

import "context"

// Store persists the audit ledger. Implementations must treat entries as
// append-only: there is no update or delete operation.
type Store interface {
	// AppendEntry writes one entry to the ledger.
	AppendEntry(ctx context.Context, entry *Entry) error

	// ListEntries returns matching entries ordered by CreatedAt descending.
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)
}
