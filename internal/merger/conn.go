package merger

import (
	"context"
	"database/sql"

	"github.com/jwlmerge/jwlmerge/internal/database"
)

// sourceConn pairs an open source database handle with the path it was
// opened from, purely so runPipeline can close every open source
// connection uniformly via closeAll once it's done reading from them.
type sourceConn struct {
	db   *sql.DB
	path string
}

func openSource(ctx context.Context, path string) (*sourceConn, error) {
	db, err := database.OpenReadOnly(ctx, path)
	if err != nil {
		return nil, err
	}
	return &sourceConn{db: db, path: path}, nil
}

func closeAll(conns []*sourceConn) {
	for _, c := range conns {
		if c != nil && c.db != nil {
			c.db.Close()
		}
	}
}
