package tasks

import (
	"fmt"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, e.g. models.UploadProgress
}

// Operation phase enumeration
type Phase int

const (
	Record Phase = iota
	Upload
	Complete
	FetchPage
	CacheItems
	ExportWritten
)

func (p Phase) String() string {
	switch p {
	case Record:
		return "record"
	case Upload:
		return "upload"
	case Complete:
		return "complete"
	case FetchPage:
		return "fetch_page"
	case CacheItems:
		return "cache_items"
	case ExportWritten:
		return "export_written"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func recordUpdate(form, endpoint string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Record,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Submitting %s to %s...", form, endpoint),
	}
}

func uploadUpdate(p models.UploadProgress) ProgressUpdate {
	update := ProgressUpdate{Phase: Upload, Total: 100, Data: p}
	if p.Indeterminate {
		update.Message = fmt.Sprintf("Uploading... %s sent", shared.FormatBytes(p.BytesSent))
		return update
	}
	update.Step = int(p.Percent)
	update.Message = "Uploading " + p.String()
	return update
}

func completeUpdate(res string, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{Phase: Complete, Step: 1, Total: 1, Message: fmt.Sprintf("✗ %v", err), Data: err}
	}
	return ProgressUpdate{Phase: Complete, Step: 1, Total: 1, Message: fmt.Sprintf("✓ Created %s", res)}
}

func fetchPageUpdate(step, total int, kind models.Kind) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, kind),
	}
}

func pageFailedUpdate(step, total, page int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ page %d: %v", step, total, page, err),
	}
}

func cacheItemsUpdate(n int, kind models.Kind) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheItems,
		Step:    n,
		Total:   n,
		Message: fmt.Sprintf("Cached %d %s", n, kind),
	}
}

func exportWrittenUpdate(path string, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportWritten,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Wrote %d items to %s", items, path),
		Data:    path,
	}
}
