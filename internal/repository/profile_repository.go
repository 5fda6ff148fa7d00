package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"project_greeter/internal/entities"
)

// MinProfiles is the number of sender accounts a run needs
const MinProfiles = 2

var sessionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type profilesFile struct {
	Profiles []entities.Profile `json:"PROFILES"`
}

// LoadProfiles reads and validates the sender profiles file
func LoadProfiles(path string) ([]entities.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return ParseProfiles(data)
}

func ParseProfiles(data []byte) ([]entities.Profile, error) {
	var file profilesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidProfiles, err)
	}

	if len(file.Profiles) < MinProfiles {
		return nil, fmt.Errorf("%w: need at least %d profiles, got %d", entities.ErrInvalidProfiles, MinProfiles, len(file.Profiles))
	}

	names := make(map[string]bool)
	sessions := make(map[string]bool)
	for i := range file.Profiles {
		p := &file.Profiles[i]
		p.Name = strings.TrimSpace(p.Name)
		p.SessionName = strings.TrimSpace(p.SessionName)
		p.Phone = NormalizePhone(p.Phone)

		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile %d has no NAME", entities.ErrInvalidProfiles, i)
		}
		if p.Phone == "" {
			return nil, fmt.Errorf("%w: profile %q has no valid PHONE_NUMBER", entities.ErrInvalidProfiles, p.Name)
		}
		if !sessionNamePattern.MatchString(p.SessionName) {
			return nil, fmt.Errorf("%w: profile %q has an invalid SESSION_NAME %q", entities.ErrInvalidProfiles, p.Name, p.SessionName)
		}
		if p.MaxPerMinute < 0 {
			return nil, fmt.Errorf("%w: profile %q has a negative MAX_PER_MINUTE", entities.ErrInvalidProfiles, p.Name)
		}
		if names[p.Name] {
			return nil, fmt.Errorf("%w: duplicate NAME %q", entities.ErrInvalidProfiles, p.Name)
		}
		if sessions[p.SessionName] {
			return nil, fmt.Errorf("%w: duplicate SESSION_NAME %q", entities.ErrInvalidProfiles, p.SessionName)
		}
		names[p.Name] = true
		sessions[p.SessionName] = true
	}
	return file.Profiles, nil
}

// NormalizePhone keeps the digits of an international phone number.
// Returns "" when the input has anything other than digits, spaces, dashes,
// parentheses and a leading plus.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "+")
	var sb strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return ""
		}
	}
	return sb.String()
}
