package pipeline

import "github.com/dyluth/credscan/pkg/ledger"

// Events receives progress notifications from a Coordinator.
// Archive events are called from the goroutine running Run or ProcessArchive.
// Page and match events are called from the archive's collector goroutine.
// Calls never overlap within one Coordinator run, so implementations
// shared between concurrent runs must synchronise themselves.
type Events interface {
	// ArchiveStarted is called once an archive has been opened.
	ArchiveStarted(path string)

	// ArchiveFailed is called when an archive cannot be opened, or when a
	// directory under the scan root cannot be read. Processing moves on.
	ArchiveFailed(path string, err error)

	// PageFailed is called for a page that could not be extracted or
	// recognised. The page is excluded from scoring.
	PageFailed(archive, entry string, err error)

	// MatchSaved is called after a qualifying page is on disk.
	MatchSaved(rec *ledger.MatchRecord)

	// WriteFailed is called when a qualifying page could not be persisted.
	WriteFailed(archive, entry string, err error)
}

// NopEvents ignores every notification.
type NopEvents struct{}

func (NopEvents) ArchiveStarted(string) {}
func (NopEvents) ArchiveFailed(string, error) {}
func (NopEvents) PageFailed(string, string, error) {}
func (NopEvents) MatchSaved(*ledger.MatchRecord) {}
func (NopEvents) WriteFailed(string, string, error) {}
