package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"project_greeter/internal/entities"
)

// RecipientRepository is the pending-recipient queue kept in a CSV file.
// The identifier is the first field of each row; other fields are kept as-is.
type RecipientRepository struct {
	path string
	mu   sync.Mutex
}

func NewRecipientRepository(path string) *RecipientRepository {
	return &RecipientRepository{path: path}
}

func (r *RecipientRepository) Path() string {
	return r.path
}

// Load returns every queued recipient in file order. A missing file is
// recreated empty.
func (r *RecipientRepository) Load() ([]entities.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.readRows()
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(r.path, nil, 0644); err != nil {
			return nil, fmt.Errorf("failed to create recipient file: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	recipients := make([]entities.Recipient, 0, len(rows))
	for _, row := range rows {
		if id := firstField(row); id != "" {
			recipients = append(recipients, entities.Recipient(id))
		}
	}
	return recipients, nil
}

// Remove rewrites the file without the rows whose identifier matches.
// Removing an identifier that is not queued leaves the file untouched.
func (r *RecipientRepository) Remove(recipient entities.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.readRows()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	target := strings.TrimSpace(string(recipient))
	kept := rows[:0]
	removed := false
	for _, row := range rows {
		if firstField(row) == target {
			removed = true
			continue
		}
		kept = append(kept, row)
	}
	if !removed {
		return nil
	}
	return r.writeRows(kept)
}

// Save replaces the queue with the given recipients, one per row
func (r *RecipientRepository) Save(recipients []entities.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([][]string, 0, len(recipients))
	for _, rc := range recipients {
		rows = append(rows, []string{string(rc)})
	}
	return r.writeRows(rows)
}

func (r *RecipientRepository) readRows() ([][]string, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// writeRows replaces the file atomically so a crash never leaves a half-written queue
func (r *RecipientRepository) writeRows(rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}

	writer := csv.NewWriter(tmp)
	if err := writer.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace recipient file: %w", err)
	}
	return nil
}

func firstField(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[0])
}
