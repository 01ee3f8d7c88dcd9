// Copyright 2024 Atom Onboarding Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package interactions keeps an append-only audit trail of onboarding
// answers and saved interactions. It supports file-based and SQLite storage.
// Flow state is never restored from it.
package interactions

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	StorageTypeFile   = "file"
	StorageTypeSQLite = "sqlite"
	StorageTypeNone   = "none"
)

// ErrQueryUnsupported is returned by queries the active backend cannot answer
var ErrQueryUnsupported = errors.New("query only supported for SQLite storage")

// Interaction represents one logged question/answer exchange
type Interaction struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Step      string    `json:"step"`
	Question  string    `json:"question,omitempty"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds configuration for interaction logging
type Config struct {
	StorageType string `json:"storage_type"` // StorageTypeFile, StorageTypeSQLite or StorageTypeNone
	FilePath    string `json:"file_path"`    // Path for file storage
	DBPath      string `json:"db_path"`      // Path for SQLite database
}

// Logger records interactions to the configured storage backend
type Logger struct {
	config Config
	logger *zap.Logger
	db     *sql.DB
	mu     sync.RWMutex
	now    func() time.Time
}

// NewLogger creates a new interaction logger
func NewLogger(config Config, logger *zap.Logger) (*Logger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	il := &Logger{
		config: config,
		logger: logger,
		now:    time.Now,
	}

	switch config.StorageType {
	case StorageTypeFile:
		if err := il.initFileStorage(); err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
	case StorageTypeSQLite:
		if err := il.initSQLiteStorage(); err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
	case StorageTypeNone, "":
		il.config.StorageType = StorageTypeNone
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.StorageType)
	}

	return il, nil
}

// StorageType reports the active backend
func (il *Logger) StorageType() string {
	return il.config.StorageType
}

func (il *Logger) initFileStorage() error {
	dir := filepath.Dir(il.config.FilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create interactions directory: %w", err)
	}

	if _, err := os.Stat(il.config.FilePath); os.IsNotExist(err) {
		file, err := os.Create(il.config.FilePath)
		if err != nil {
			return fmt.Errorf("failed to create interactions file: %w", err)
		}
		_ = file.Close()
	}

	return nil
}

func (il *Logger) initSQLiteStorage() error {
	dir := filepath.Dir(il.config.DBPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create interactions database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", il.config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			step TEXT NOT NULL,
			question TEXT,
			answer TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create interactions table: %w", err)
	}

	il.db = db
	return nil
}

// RecordWithQuestion logs an answer together with the question shown
func (il *Logger) RecordWithQuestion(sessionID, step, question, answer string) error {
	il.mu.Lock()
	defer il.mu.Unlock()

	record := Interaction{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Step:      step,
		Question:  question,
		Answer:    answer,
		Timestamp: il.now().UTC(),
	}

	switch il.config.StorageType {
	case StorageTypeFile:
		return il.logToFile(record)
	case StorageTypeSQLite:
		return il.logToSQLite(record)
	default:
		return nil
	}
}

func (il *Logger) logToFile(record Interaction) error {
	file, err := os.OpenFile(il.config.FilePath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open interactions file: %w", err)
	}
	defer func() { _ = file.Close() }()

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}

	if _, err := file.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write interaction to file: %w", err)
	}

	il.logger.Debug("Interaction logged to file",
		zap.String("id", record.ID),
		zap.String("session_id", record.SessionID),
		zap.String("step", record.Step))

	return nil
}

func (il *Logger) logToSQLite(record Interaction) error {
	if il.db == nil {
		return fmt.Errorf("SQLite database not initialized")
	}

	insertSQL := `
		INSERT INTO interactions (id, session_id, step, question, answer, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := il.db.Exec(insertSQL,
		record.ID,
		record.SessionID,
		record.Step,
		record.Question,
		record.Answer,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction into SQLite: %w", err)
	}

	il.logger.Debug("Interaction logged to SQLite",
		zap.String("id", record.ID),
		zap.String("session_id", record.SessionID),
		zap.String("step", record.Step))

	return nil
}

// Recent returns the newest interactions first (SQLite only)
func (il *Logger) Recent(limit int) ([]Interaction, error) {
	if il.config.StorageType != StorageTypeSQLite {
		return nil, ErrQueryUnsupported
	}
	if il.db == nil {
		return nil, fmt.Errorf("SQLite database not initialized")
	}

	il.mu.RLock()
	defer il.mu.RUnlock()

	query := `
		SELECT id, session_id, step, question, answer, timestamp
		FROM interactions
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`

	rows, err := il.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Interaction
	for rows.Next() {
		var record Interaction
		var question sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.Step,
			&question,
			&record.Answer,
			&record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction row: %w", err)
		}
		if question.Valid {
			record.Question = question.String
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interaction rows: %w", err)
	}

	return records, nil
}

// StepCounts returns how many interactions were logged per step (SQLite only)
func (il *Logger) StepCounts() (map[string]int, error) {
	if il.config.StorageType != StorageTypeSQLite {
		return nil, ErrQueryUnsupported
	}
	if il.db == nil {
		return nil, fmt.Errorf("SQLite database not initialized")
	}

	il.mu.RLock()
	defer il.mu.RUnlock()

	rows, err := il.db.Query(`SELECT step, COUNT(*) FROM interactions GROUP BY step`)
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[string]int)
	for rows.Next() {
		var step string
		var count int
		if err := rows.Scan(&step, &count); err != nil {
			return nil, fmt.Errorf("failed to scan interaction stats row: %w", err)
		}
		stats[step] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interaction stats rows: %w", err)
	}

	return stats, nil
}

// Ping verifies the backend is writable
func (il *Logger) Ping() error {
	il.mu.RLock()
	defer il.mu.RUnlock()

	switch il.config.StorageType {
	case StorageTypeSQLite:
		if il.db == nil {
			return fmt.Errorf("SQLite database not initialized")
		}
		return il.db.Ping()
	case StorageTypeFile:
		_, err := os.Stat(il.config.FilePath)
		return err
	}
	return nil
}

// Close closes the interaction logger and any open resources
func (il *Logger) Close() error {
	il.mu.Lock()
	defer il.mu.Unlock()

	if il.db != nil {
		return il.db.Close()
	}

	return nil
}
