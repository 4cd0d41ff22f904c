// Package bench turns discovered runner scripts into benchmark cases, runs
// them through the dashboard task runner and reports frame throughput.
//
// A case passes only when its runner exits with status zero. The status line
// printed for a passing case is the last output line mentioning the
// throughput marker (normally "frames"), e.g.
//
//	   go / release: Emulated 600 frames in 1.20s (500fps)
//	   rs / release: Failed
//	<combined output>
package bench
