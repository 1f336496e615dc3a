package services

import (
	"fmt"
	"strings"
	"time"

	socialhub_errors "socialhub/pkg/errors"

	"github.com/google/uuid"
)

// Cursor is the exclusive lower bound of the next history page: only rows
// strictly older than (CreatedAt, ID) follow it.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// maxID sorts after every real id, so a timestamp-only cursor still
// includes rows created at exactly that instant.
var maxID = uuid.UUID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

func (c Cursor) String() string {
	return c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
}

// ParseCursor decodes the wire form "<RFC3339Nano>|<uuid>". The id part is
// optional. An empty string means "no cursor" and returns nil.
func ParseCursor(raw string) (*Cursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	ts, idPart, hasID := strings.Cut(raw, "|")
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor timestamp: %w", socialhub_errors.ErrInvalidInput)
	}

	id := maxID
	if hasID {
		id, err = uuid.Parse(idPart)
		if err != nil {
			return nil, fmt.Errorf("malformed cursor id: %w", socialhub_errors.ErrInvalidInput)
		}
	}
	return &Cursor{CreatedAt: createdAt.UTC(), ID: id}, nil
}
