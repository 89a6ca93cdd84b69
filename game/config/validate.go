package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ValidationResult captures the outcome of validating a single settings file.
// Errors lists every problem found; Info summarizes a valid file.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

// ValidateFile loads and validates a settings file. Unlike LoadSettings, a
// missing file is an error here.
func ValidateFile(path string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		if errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, "File does not exist")
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		}
		return result
	}

	settings := DefaultSettings()
	if err := decodeSettings(data, settings); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid YAML: %v", err))
		return result
	}

	if problems := settings.Problems(); len(problems) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, problems...)
		return result
	}

	shape, _ := resolveDifficulty(settings.Difficulties, settings.DefaultDifficulty, len(settings.Alphabet()))
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Default difficulty: %s (%s)", settings.DefaultDifficulty, shape),
		fmt.Sprintf("✓ Difficulties: %d", len(settings.Difficulties)),
		fmt.Sprintf("✓ Symbols: %d", len(settings.Alphabet())),
		fmt.Sprintf("✓ Timing: check %s, flip back %s, tick %s",
			settings.Timing.MatchCheckDelay, settings.Timing.FlipBackDelay, settings.Timing.TickInterval),
		fmt.Sprintf("✓ Aggregate backend: %s", settings.Aggregate.Backend),
	)
	return result
}
