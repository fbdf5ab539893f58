package backend

import (
	"fmt"
	"time"
)

// Kind identifies a storage backend.
type Kind string

const (
	// KindAuto picks the sheet backend when a spreadsheet is configured
	// and reachable, and falls back to the local file otherwise.
	KindAuto   Kind = "auto"
	KindSheets Kind = "sheets"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	switch k {
	case KindAuto, KindSheets, KindFile, KindSQLite:
		return true
	default:
		return false
	}
}

// Kinds returns all supported backend kinds.
func Kinds() []Kind {
	return []Kind{KindAuto, KindSheets, KindFile, KindSQLite}
}

// Config holds everything needed to construct any of the backends.
type Config struct {
	Kind Kind

	// Google Sheets
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	SheetTimeout    time.Duration

	// Local file
	FilePath string

	// SQLite
	SQLitePath string
}

// Validate checks that the selected kind has the settings it needs.
// KindAuto is always valid as long as the file fallback has a path:
// missing sheet settings just mean the file backend wins.
func (c Config) Validate() error {
	if !c.Kind.IsValid() {
		return fmt.Errorf("invalid backend kind: %q", c.Kind)
	}

	switch c.Kind {
	case KindSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet id is required for the sheets backend")
		}
	case KindFile:
		if c.FilePath == "" {
			return fmt.Errorf("data file path is required for the file backend")
		}
	case KindSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("database path is required for the sqlite backend")
		}
	case KindAuto:
		if c.FilePath == "" {
			return fmt.Errorf("data file path is required as the auto fallback")
		}
	}
	return nil
}
