package naming

import (
	"context"
	"fmt"
)

// ExistsFunc reports whether owner already has a file record with filename.
type ExistsFunc func(ctx context.Context, ownerID int64, filename string) (bool, error)

// Resolver picks the first unused "{base} ({n}){ext}" variant of a filename.
// The answer is a hint: concurrent uploads can race between Resolve and the
// record insert, so the record store must still enforce uniqueness.
type Resolver struct {
	exists ExistsFunc
}

// NewResolver creates a Resolver backed by the given existence check.
func NewResolver(exists ExistsFunc) *Resolver {
	return &Resolver{exists: exists}
}

// Resolve returns name unchanged when the owner has no file with that name,
// otherwise probes "name (1).ext", "name (2).ext", ... in order.
func (r *Resolver) Resolve(ctx context.Context, ownerID int64, name string) (string, error) {
	candidate := name
	base, ext := splitExt(name)
	for n := 1; ; n++ {
		taken, err := r.exists(ctx, ownerID, candidate)
		if err != nil {
			return "", fmt.Errorf("check filename %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
}
