package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists plan history to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so history reads don't block plan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite plan store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id           TEXT PRIMARY KEY,
			symbol       TEXT NOT NULL,
			total_amount REAL NOT NULL,
			created_at   INTEGER NOT NULL,
			payload      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_symbol ON plans(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_created ON plans(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) SavePlan(rec *PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO plans (id, symbol, total_amount, created_at, payload)
		VALUES (?,?,?,?,?)`,
		rec.ID, rec.Symbol, rec.TotalAmount, rec.CreatedAt.Unix(), string(payload),
	)
	return err
}

func (s *SQLiteStore) PlanByID(id string) (*PlanRecord, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM plans WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodePlan(payload)
}

func (s *SQLiteStore) RecentPlans(limit int) ([]*PlanRecord, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT payload FROM plans ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlans(rows)
}

func (s *SQLiteStore) PlansBySymbol(symbol string) ([]*PlanRecord, error) {
	rows, err := s.db.Query(`SELECT payload FROM plans WHERE symbol = ? ORDER BY created_at DESC, id DESC`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlans(rows)
}

func (s *SQLiteStore) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (s *SQLiteStore) Statistics() (*Statistics, error) {
	stats := &Statistics{}
	var first, last sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT symbol), COALESCE(SUM(total_amount), 0),
		MIN(created_at), MAX(created_at) FROM plans`).
		Scan(&stats.TotalPlans, &stats.TotalSymbols, &stats.TotalAmount, &first, &last)
	if err != nil {
		return nil, err
	}
	if first.Valid {
		t := time.Unix(first.Int64, 0)
		stats.FirstPlanAt = &t
	}
	if last.Valid {
		t := time.Unix(last.Int64, 0)
		stats.LastPlanAt = &t
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite plan store")
	return s.db.Close()
}

func scanPlans(rows *sql.Rows) ([]*PlanRecord, error) {
	var plans []*PlanRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		rec, err := decodePlan(payload)
		if err != nil {
			return nil, err
		}
		plans = append(plans, rec)
	}
	return plans, rows.Err()
}

func decodePlan(payload string) (*PlanRecord, error) {
	var rec PlanRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &rec, nil
}
