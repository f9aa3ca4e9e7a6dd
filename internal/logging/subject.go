package logging

import "strings"

// runIDDisplayLength is how much of a run UUID the console shows.
const runIDDisplayLength = 8

// FormatSubject builds the run/stage subject string used in console output.
func FormatSubject(runID, stage string) string {
	runID = strings.TrimSpace(runID)
	stage = strings.TrimSpace(stage)
	if len(runID) > runIDDisplayLength {
		runID = runID[:runIDDisplayLength]
	}
	switch {
	case runID != "" && stage != "":
		return "Run " + runID + " (" + stage + ")"
	case runID != "":
		return "Run " + runID
	default:
		return stage
	}
}
