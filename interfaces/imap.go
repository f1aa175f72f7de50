package interfaces

import (
	"context"
	"time"

	"github.com/emersion/go-imap"
)

// PartRef addresses one body part within a message. Path is the IMAP
// part path (1-based at every level), Encoding the part's declared
// content-transfer-encoding.
type PartRef struct {
	Path     []int
	Encoding string
}

// MailboxSession is one stateful IMAP connection owned by a single job.
// Connect must be called first, Close exactly once on every path.
type MailboxSession interface {
	Connect(ctx context.Context) error
	Open(ctx context.Context, mailbox string) error
	// SearchFrom returns the UIDs of messages whose From matches the
	// pattern (exact address, or any address at the domain when the
	// pattern starts with "@") and whose date falls on the given UTC day.
	SearchFrom(ctx context.Context, pattern string, day time.Time) ([]uint32, error)
	// FetchOne returns envelope and body structure without body content.
	FetchOne(ctx context.Context, uid uint32) (*imap.Message, error)
	// DownloadPart returns the decoded bytes of one body part.
	DownloadPart(ctx context.Context, uid uint32, part PartRef) ([]byte, error)
	EnsureFolder(ctx context.Context, name string) error
	MoveMessages(ctx context.Context, uids []uint32, folder string) error
	Close() error
}

// SessionFactory opens fresh mailbox sessions; each job gets its own.
type SessionFactory interface {
	NewSession() MailboxSession
}
