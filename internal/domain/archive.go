package domain

import "time"

// ArchiveEntry records a chapter that finished the terminal stage.
type ArchiveEntry struct {
	Title      string
	Chapter    string
	ArchivedAt time.Time
}
