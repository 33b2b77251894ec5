package migrations

import (
	"context"
	"database/sql"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type migration func(ctx context.Context, tx *sql.Tx) error

var migrations = []migration{
	m0_create_table_starboard_votes,
	m1_create_table_starboard_mirrors,
	m2_create_table_starboard_config,
}

// Run executes all registered migrations that were not applied to db yet
func Run(ctx context.Context, db *sql.DB, log *logrus.Entry) error {
	log.Info("running migrations...")

	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return errors.Wrap(err, "creating schema_migrations")
	}

	for _, m := range migrations {
		name := migrationName(m)

		applied, err := isApplied(ctx, db, name)
		if err != nil {
			return errors.Wrapf(err, "checking migration %s", name)
		}
		if applied {
			continue
		}

		log.Infof("running %s", name)
		err = inTx(ctx, db, func(tx *sql.Tx) error {
			if err := m(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)",
				name, time.Now().Unix())
			return err
		})
		if err != nil {
			return errors.Wrapf(err, "migration %s", name)
		}
	}

	log.Info("migrations finished")
	return nil
}

func migrationName(m migration) string {
	name := runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name()
	return name[strings.LastIndex(name, ".")+1:]
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM schema_migrations WHERE name = ?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
