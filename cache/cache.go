// Package cache implements incremental build cache for sprite compilations.
//
// A compilation is keyed by its stylesheet path and fingerprinted with the
// stylesheet content, every file under the image directory (path, size,
// modification time) and the geometry options. When the fingerprint matches
// the stored one and all artifacts are still on disk the compilation can be
// skipped - it would reproduce existing artifacts byte for byte.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `CREATE TABLE IF NOT EXISTS compilations (
	key TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	updated INTEGER NOT NULL
);`

type Cache struct {
	conn *sqlite.Conn
	log  *zap.Logger
}

// Open creates or opens cache database at path. Returned cache is not safe
// for concurrent use - callers serialize access.
func Open(path string, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare cache db: %w", err)
	}
	return &Cache{conn: conn, log: log}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Fingerprint computes compilation fingerprint from stylesheet content, the
// state of every file under imgDir and an opaque options string.
func Fingerprint(cssData []byte, imgDir, options string) (string, error) {
	h := sha256.New()
	h.Write(cssData)
	h.Write([]byte(options))

	err := filepath.WalkDir(imgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// UpToDate reports whether stored fingerprint for key matches and all
// artifacts still exist on disk. Any cache trouble degrades to a miss.
func (c *Cache) UpToDate(key, fingerprint string, artifacts ...string) bool {
	if c == nil || c.conn == nil {
		return false
	}

	var stored string
	err := sqlitex.Execute(c.conn, `SELECT fingerprint FROM compilations WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stored = stmt.ColumnText(0)
				return nil
			},
		})
	if err != nil {
		c.log.Warn("Cache lookup failed, rebuilding", zap.String("key", key), zap.Error(err))
		return false
	}
	if stored != fingerprint {
		return false
	}

	for _, a := range artifacts {
		if _, err := os.Stat(a); err != nil {
			return false
		}
	}
	return true
}

// Store records fingerprint for key replacing any previous one.
func (c *Cache) Store(key, fingerprint string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return sqlitex.Execute(c.conn,
		`INSERT INTO compilations (key, fingerprint, updated) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET fingerprint = excluded.fingerprint, updated = excluded.updated`,
		&sqlitex.ExecOptions{Args: []any{key, fingerprint, time.Now().Unix()}})
}
