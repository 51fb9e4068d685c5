package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/CamberLoid/FHEVault/internal/store"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/pkg/errors"
)

const selectStrategy = `
	SELECT id, risk_level, allocation, timeframe,
		encrypted_data, encrypted_hash, encrypted_score, decrypted_score,
		status, created_at, computed_at
	FROM Strategies
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*strategy.Record, error) {
	var (
		rec            strategy.Record
		status         string
		encryptedScore sql.NullString
		decryptedScore sql.NullInt64
		createdAt      int64
		computedAt     sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &rec.RiskLevel, &rec.Allocation, &rec.Timeframe,
		&rec.EncryptedData, &rec.EncryptedHash, &encryptedScore, &decryptedScore,
		&status, &createdAt, &computedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = strategy.Status(status)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	if encryptedScore.Valid {
		rec.EncryptedScore = &encryptedScore.String
	}
	if decryptedScore.Valid {
		v := int(decryptedScore.Int64)
		rec.DecryptedScore = &v
	}
	if computedAt.Valid {
		at := time.Unix(0, computedAt.Int64).UTC()
		rec.ComputedAt = &at
	}
	return &rec, nil
}

func nullable(rec *strategy.Record) (encryptedScore, decryptedScore, computedAt any) {
	if rec.EncryptedScore != nil {
		encryptedScore = *rec.EncryptedScore
	}
	if rec.DecryptedScore != nil {
		decryptedScore = *rec.DecryptedScore
	}
	if rec.ComputedAt != nil {
		computedAt = rec.ComputedAt.UnixNano()
	}
	return
}

// --- 查询部分 ---

func (s *SQLiteStore) Get(ctx context.Context, id string) (*strategy.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectStrategy+`WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan strategy")
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*strategy.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectStrategy+`ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "query strategies")
	}
	defer rows.Close()

	out := make([]*strategy.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan strategy")
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate strategies")
}

func (s *SQLiteStore) Stats(ctx context.Context) (stats store.Stats, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Strategies`).Scan(&stats.TotalStrategies)
	if err != nil {
		return stats, errors.Wrap(err, "count strategies")
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT value FROM Counters WHERE name = 'computations'), 0)`,
	).Scan(&stats.TotalComputations)
	if err != nil {
		return stats, errors.Wrap(err, "read computations counter")
	}
	return stats, nil
}

// --- 写入部分 ---

func (s *SQLiteStore) Create(ctx context.Context, rec *strategy.Record) error {
	encryptedScore, decryptedScore, computedAt := nullable(rec)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO Strategies (
			id, risk_level, allocation, timeframe,
			encrypted_data, encrypted_hash, encrypted_score, decrypted_score,
			status, created_at, computed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.RiskLevel, rec.Allocation, rec.Timeframe,
		rec.EncryptedData, rec.EncryptedHash, encryptedScore, decryptedScore,
		string(rec.Status), rec.CreatedAt.UnixNano(), computedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrDuplicateID
	}
	return errors.Wrap(err, "insert strategy")
}

// Update 在一个事务中完成 读取 - 修改 - 写回
func (s *SQLiteStore) Update(ctx context.Context, id string, fn store.UpdateFunc) (rec *strategy.Record, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	cur, err := scanRecord(tx.QueryRowContext(ctx, selectStrategy+`WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan strategy")
	}

	rec = cur.Clone()
	if err = fn(rec); err != nil {
		return nil, err
	}

	encryptedScore, decryptedScore, computedAt := nullable(rec)
	_, err = tx.ExecContext(ctx, `
		UPDATE Strategies SET
			encrypted_hash = ?,
			encrypted_score = ?,
			decrypted_score = ?,
			status = ?,
			computed_at = ?
		WHERE id = ?
	`, rec.EncryptedHash, encryptedScore, decryptedScore, string(rec.Status), computedAt, id)
	if err != nil {
		return nil, errors.Wrap(err, "update strategy")
	}

	if rec.Status == strategy.StatusCompleted && cur.Status != strategy.StatusCompleted {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO Counters (name, value) VALUES ('computations', 1)
			ON CONFLICT (name) DO UPDATE SET value = value + 1
		`)
		if err != nil {
			return nil, errors.Wrap(err, "bump computations counter")
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return rec, nil
}
