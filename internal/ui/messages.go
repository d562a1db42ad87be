package ui

import (
	"github.com/altin/flakescan/internal/model"
)

// ScanDoneMsg delivers the finished (or interrupted) scan to the browser.
type ScanDoneMsg struct {
	Report *model.ScanReport
	Err    error
}
