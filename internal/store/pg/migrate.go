package pg

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/para/internal/observability/logger"
	migrations "github.com/dropDatabas3/para/migrations/postgres"
)

// lockID deriva el id de pg_advisory_lock para las migraciones.
func lockID() int64 {
	h := sha256.Sum256([]byte("para_migration"))
	return int64(binary.BigEndian.Uint64(h[:8]))
}

// Migrate aplica los *_up.sql embebidos bajo advisory lock y retorna cuántos scripts corrió.
// Los scripts son idempotentes (IF NOT EXISTS).
func (c *Conn) Migrate(ctx context.Context) (int, error) {
	log := logger.L().Named("migrate")
	id := lockID()

	lockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Lock bloqueante: si otro proceso migra, esperamos
	if _, err := c.pool.Exec(lockCtx, "SELECT pg_advisory_lock($1)", id); err != nil {
		return 0, fmt.Errorf("pg: acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := c.pool.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", id); err != nil {
			log.Warn("release migration lock failed", logger.Err(err))
		}
	}()

	files, err := migrationFiles(migrations.FS)
	if err != nil {
		return 0, err
	}
	var applied int
	for _, f := range files {
		b, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			return applied, err
		}
		if _, err := c.pool.Exec(ctx, string(b)); err != nil {
			return applied, fmt.Errorf("pg: exec %s: %w", f, err)
		}
		log.Info("migration applied", logger.Any("file", f))
		applied++
	}
	return applied, nil
}

// migrationFiles lista los *_up.sql del FS en orden lexicográfico.
func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), "_up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
