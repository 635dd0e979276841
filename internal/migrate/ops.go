package migrate

import (
	"context"
	"fmt"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

// applyStructural executes one DDL operation inside the step transaction.
// Dropping a table reports the rows discarded with it; every other operation
// reports zero.
func applyStructural(ctx context.Context, tx *store.Tx, op StructuralOp) (int64, error) {
	switch op := op.(type) {
	case CreateTable:
		if err := tx.Exec(ctx, schema.CreateTableSQL(op.Table)); err != nil {
			return 0, err
		}
		for _, idx := range op.Table.Indices {
			if err := tx.Exec(ctx, schema.CreateIndexSQL(op.Table.Name, idx)); err != nil {
				return 0, err
			}
		}
		return 0, nil
	case DropTable:
		n, err := countRows(ctx, tx, op.Name)
		if err != nil {
			return 0, err
		}
		return n, tx.Exec(ctx, "DROP TABLE "+schema.Quote(op.Name))
	case RenameTable:
		return 0, tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", schema.Quote(op.From), schema.Quote(op.To)))
	case AddColumn:
		return 0, tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", schema.Quote(op.Table), schema.ColumnSQL(op.Column)))
	case CreateIndex:
		return 0, tx.Exec(ctx, schema.CreateIndexSQL(op.Table, op.Index))
	case DropIndex:
		return 0, tx.Exec(ctx, "DROP INDEX "+schema.Quote(op.Name))
	default:
		return 0, fmt.Errorf("unknown structural operation %T", op)
	}
}

func countRows(ctx context.Context, tx *store.Tx, table string) (int64, error) {
	rows, err := tx.Query(ctx, "SELECT COUNT(*) FROM "+schema.Quote(table))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// applyTransform executes one data transform inside the step transaction and
// reports the number of rows it touched.
func applyTransform(ctx context.Context, tx *store.Tx, tr DataTransform) (int64, error) {
	switch tr := tr.(type) {
	case Purge:
		return tx.ExecResult(ctx, "DELETE FROM "+schema.Quote(tr.Table))
	case RankBackfill:
		table := schema.Quote(tr.Table)
		return tx.ExecResult(ctx, fmt.Sprintf(
			"UPDATE %s SET %s = (SELECT COUNT(*) FROM %s AS prior WHERE prior.rowid < %s.rowid)",
			table, schema.Quote(tr.Column), table, table,
		))
	case ExecSQL:
		return tx.ExecResult(ctx, tr.SQL)
	default:
		return 0, fmt.Errorf("unknown data transform %T", tr)
	}
}
