package models

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// UploadProgress reports how far an in-flight submission has got.
//
// Percent is exact when TotalBytes is known. Indeterminate progress carries
// only BytesSent. Done is set once the response has been received.
type UploadProgress struct {
	Percent       float64
	Indeterminate bool
	BytesSent     int64
	TotalBytes    int64
	Done          bool
}

// ExactProgress computes progress from bytes sent against a known total.
func ExactProgress(sent, total int64) UploadProgress {
	if total <= 0 {
		return UploadProgress{Indeterminate: true, BytesSent: sent}
	}
	pct := float64(sent) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return UploadProgress{Percent: pct, BytesSent: sent, TotalBytes: total}
}

// CompleteProgress is the terminal value emitted when the request resolves.
func CompleteProgress(sent, total int64) UploadProgress {
	return UploadProgress{Percent: 100, BytesSent: sent, TotalBytes: total, Done: true}
}

func (p UploadProgress) String() string {
	switch {
	case p.Done:
		return fmt.Sprintf("100%% (%s)", humanize.Bytes(uint64(max(p.BytesSent, 0))))
	case p.Indeterminate:
		return fmt.Sprintf("%s sent", humanize.Bytes(uint64(max(p.BytesSent, 0))))
	case p.TotalBytes > 0:
		return fmt.Sprintf("%.0f%% (%s / %s)", p.Percent,
			humanize.Bytes(uint64(max(p.BytesSent, 0))), humanize.Bytes(uint64(p.TotalBytes)))
	}
	return fmt.Sprintf("%.0f%%", p.Percent)
}
