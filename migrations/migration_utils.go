package migrations

import (
	"context"
	"database/sql"
)

// TableExists checks sqlite_master for tableName
func TableExists(ctx context.Context, tx *sql.Tx, tableName string) (bool, error) {
	var name string
	err := tx.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", tableName).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// CreateTableIfNotExists runs schema unless tableName is already there
func CreateTableIfNotExists(ctx context.Context, tx *sql.Tx, tableName, schema string) error {
	exists, err := TableExists(ctx, tx, tableName)
	if err != nil || exists {
		return err
	}
	_, err = tx.ExecContext(ctx, schema)
	return err
}
