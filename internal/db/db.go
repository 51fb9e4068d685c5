// 包 db 是基于 SQLite 的 store.Store 实现
package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// --- 初始化：建表 ---

// table Strategies
// 时间以 unix 纳秒保存，encrypted_score/decrypted_score/computed_at 可为空
func CreateStrategyTable() string {
	return `
		CREATE TABLE IF NOT EXISTS Strategies (
			id TEXT PRIMARY KEY NOT NULL,
			risk_level INTEGER NOT NULL,
			allocation INTEGER NOT NULL,
			timeframe INTEGER NOT NULL,
			encrypted_data TEXT NOT NULL,
			encrypted_hash TEXT NOT NULL,
			encrypted_score TEXT,
			decrypted_score INTEGER,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at INTEGER NOT NULL,
			computed_at INTEGER
		);
	`
}

// table Counters
// 目前只有 computations 一行
func CreateCounterTable() string {
	return `
		CREATE TABLE IF NOT EXISTS Counters (
			name TEXT PRIMARY KEY NOT NULL,
			value INTEGER NOT NULL DEFAULT 0
		);
	`
}

type SQLiteStore struct {
	db *sql.DB
}

// Open 打开/创建数据库并建表
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// 单连接：事务天然串行，避免 database is locked
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA foreign_keys = ON;",
		CreateStrategyTable(),
		CreateCounterTable(),
	} {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "initialize schema")
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
