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

package interactions

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

const (
	testSessionID = "2f6a3c1e-8d4b-4a57-9a43-1b1f0d1c2e3f"
	testAnswer    = "AI-powered sales assistant for B2B teams"
)

// steppingClock returns a clock that advances one second per call
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestNewLogger_FileStorage(t *testing.T) {
	config := Config{
		StorageType: StorageTypeFile,
		FilePath:    filepath.Join(t.TempDir(), "logs", "interactions.jsonl"),
	}

	il, err := NewLogger(config, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create interaction logger: %v", err)
	}
	defer func() { _ = il.Close() }()

	if _, err := os.Stat(config.FilePath); os.IsNotExist(err) {
		t.Fatalf("Interactions file was not created: %v", err)
	}
	if err := il.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewLogger_UnsupportedStorage(t *testing.T) {
	_, err := NewLogger(Config{StorageType: "redis"}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("Expected error for unsupported storage type")
	}
}

func TestNewLogger_NoneStorage(t *testing.T) {
	il, err := NewLogger(Config{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create interaction logger: %v", err)
	}
	if il.StorageType() != StorageTypeNone {
		t.Errorf("StorageType() = %q, want %q", il.StorageType(), StorageTypeNone)
	}
	if err := il.RecordWithQuestion(testSessionID, "product", "", testAnswer); err != nil {
		t.Errorf("RecordWithQuestion() on none storage error = %v", err)
	}
	if _, err := il.Recent(10); !errors.Is(err, ErrQueryUnsupported) {
		t.Errorf("Recent() error = %v, want ErrQueryUnsupported", err)
	}
}

func TestRecord_FileStorage(t *testing.T) {
	config := Config{
		StorageType: StorageTypeFile,
		FilePath:    filepath.Join(t.TempDir(), "interactions.jsonl"),
	}

	il, err := NewLogger(config, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create interaction logger: %v", err)
	}
	defer func() { _ = il.Close() }()

	if err := il.RecordWithQuestion(testSessionID, "product", "", testAnswer); err != nil {
		t.Fatalf("Failed to record interaction: %v", err)
	}
	if err := il.RecordWithQuestion(testSessionID, "market", "Which industry do you target?", "retail"); err != nil {
		t.Fatalf("Failed to record interaction: %v", err)
	}

	file, err := os.Open(config.FilePath)
	if err != nil {
		t.Fatalf("Failed to open interactions file: %v", err)
	}
	defer func() { _ = file.Close() }()

	var records []Interaction
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record Interaction
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("Failed to unmarshal interaction line: %v", err)
		}
		records = append(records, record)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Step != "product" || records[0].Answer != testAnswer {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
	if records[1].Question != "Which industry do you target?" {
		t.Errorf("Question not persisted: %+v", records[1])
	}
	if records[0].ID == "" || records[0].ID == records[1].ID {
		t.Errorf("Expected unique IDs, got %q and %q", records[0].ID, records[1].ID)
	}
}

func TestRecord_SQLiteStorage(t *testing.T) {
	config := Config{
		StorageType: StorageTypeSQLite,
		DBPath:      filepath.Join(t.TempDir(), "interactions.db"),
	}

	il, err := NewLogger(config, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create interaction logger: %v", err)
	}
	defer func() { _ = il.Close() }()
	il.now = steppingClock()

	answers := []struct{ step, answer string }{
		{"product", testAnswer},
		{"market", "retail"},
		{"market", "retail and grocery"},
	}
	for _, a := range answers {
		if err := il.RecordWithQuestion(testSessionID, a.step, "", a.answer); err != nil {
			t.Fatalf("Failed to record interaction: %v", err)
		}
	}

	recent, err := il.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recent records, got %d", len(recent))
	}
	if recent[0].Answer != "retail and grocery" {
		t.Errorf("Expected newest record first, got %q", recent[0].Answer)
	}

	counts, err := il.StepCounts()
	if err != nil {
		t.Fatalf("StepCounts() error = %v", err)
	}
	if counts["product"] != 1 || counts["market"] != 2 {
		t.Errorf("Unexpected step counts: %v", counts)
	}

	if err := il.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestStepCounts_FileStorageUnsupported(t *testing.T) {
	il, err := NewLogger(Config{
		StorageType: StorageTypeFile,
		FilePath:    filepath.Join(t.TempDir(), "interactions.jsonl"),
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create interaction logger: %v", err)
	}

	if _, err := il.StepCounts(); !errors.Is(err, ErrQueryUnsupported) {
		t.Errorf("StepCounts() error = %v, want ErrQueryUnsupported", err)
	}
}

func TestRecord_ConcurrentWrites(t *testing.T) {
	config := Config{
		StorageType: StorageTypeSQLite,
		DBPath:      filepath.Join(t.TempDir(), "interactions.db"),
	}

	il, err := NewLogger(config, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create interaction logger: %v", err)
	}
	defer func() { _ = il.Close() }()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- il.RecordWithQuestion(testSessionID, "differentiation", "", "faster onboarding")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent RecordWithQuestion() error = %v", err)
		}
	}

	counts, err := il.StepCounts()
	if err != nil {
		t.Fatalf("StepCounts() error = %v", err)
	}
	if counts["differentiation"] != 10 {
		t.Errorf("Expected 10 differentiation records, got %d", counts["differentiation"])
	}
}
