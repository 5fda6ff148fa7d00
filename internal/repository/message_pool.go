package repository

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"project_greeter/internal/entities"
)

// LoadMessagePool reads one greeting template per non-blank line.
// A missing or empty file is reported as entities.ErrNoMessages.
func LoadMessagePool(path string) (entities.MessagePool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found: %w", path, entities.ErrNoMessages)
		}
		return nil, fmt.Errorf("failed to open messages file: %w", err)
	}
	defer file.Close()

	var pool entities.MessagePool
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			pool = append(pool, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}

	if len(pool) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", path, entities.ErrNoMessages)
	}
	return pool, nil
}
