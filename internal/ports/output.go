package ports

import (
	"context"
	"io"
)

// OutputPort writes downloaded binaries into the output directory.
type OutputPort interface {
	// Save streams body into a file named after filename and returns the
	// name actually used.
	Save(filename string, body io.Reader) (string, error)
	CheckCapacity(ctx context.Context, minFreeBytes uint64) error
}
