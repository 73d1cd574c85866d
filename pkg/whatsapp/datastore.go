package whatsapp

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow/store/sqlstore"

	// database/sql drivers selectable through WHATSAPP_DATASTORE_TYPE
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

// OpenDatastore opens (and upgrades) the whatsmeow device store.
// driver is one of sqlite, pgx, postgres or postgresql.
func OpenDatastore(ctx context.Context, driver, dsn string) (*sqlstore.Container, error) {
	normalizedDriver := normalizeDatastoreDriver(driver)
	dsn = normalizeDatastoreDSN(normalizedDriver, dsn)

	log.Bot().WithField("driver", normalizedDriver).Info("Initializing WhatsApp datastore")

	container, err := sqlstore.New(ctx, normalizedDriver, dsn, log.WA("Database"))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s datastore", normalizedDriver)
	}
	return container, nil
}

func normalizeDatastoreDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgresql", "pgx":
		return "pgx"
	case "postgres":
		return "postgres"
	case "", "sqlite", "sqlite3":
		return "sqlite"
	default:
		return strings.ToLower(driver)
	}
}

func normalizeDatastoreDSN(driver string, dsn string) string {
	switch driver {
	case "pgx":
		dsn = appendParam(dsn, "prefer_simple_protocol", "true")
		dsn = appendParam(dsn, "statement_cache_capacity", "0")
		dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	case "sqlite":
		// whatsmeow refuses to run without foreign keys
		if !strings.Contains(dsn, "foreign_keys") {
			dsn = appendParam(dsn, "_pragma", "foreign_keys(1)")
		}
		if !strings.Contains(dsn, "busy_timeout") {
			dsn = appendParam(dsn, "_pragma", "busy_timeout(5000)")
		}
	}
	return dsn
}

func appendParam(current string, key string, value string) string {
	if key != "_pragma" && strings.Contains(current, key+"=") {
		return current
	}
	separator := "?"
	if strings.Contains(current, "?") {
		if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
			separator = ""
		} else {
			separator = "&"
		}
	}
	return current + separator + key + "=" + value
}
