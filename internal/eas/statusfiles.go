package eas

import (
	"os"
	"path/filepath"
)

const (
	rainyDayFile  = "rainy_day.txt"
	severeDayFile = "severe_day.txt"
)

// ReconcileStatusFiles creates or removes rainy_day.txt / severe_day.txt
// under stateDir so that exactly one of {rainy, severe, neither} is
// expressed, per the precedence in Category. Writes are idempotent:
// create-or-truncate-to-empty, and deletes tolerate the file already being
// absent.
func ReconcileStatusFiles(stateDir string, alerts []Alert) error {
	rainyPath := filepath.Join(stateDir, rainyDayFile)
	severePath := filepath.Join(stateDir, severeDayFile)

	switch Category(alerts) {
	case StatusSevere:
		if err := touchEmpty(severePath); err != nil {
			return err
		}
		return removeIfExists(rainyPath)
	case StatusRainy:
		if err := touchEmpty(rainyPath); err != nil {
			return err
		}
		return removeIfExists(severePath)
	default:
		if err := removeIfExists(rainyPath); err != nil {
			return err
		}
		return removeIfExists(severePath)
	}
}

func touchEmpty(path string) error {
	return os.WriteFile(path, nil, 0o644)
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
