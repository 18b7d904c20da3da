// Package parexis drives multiple interactive character streams — child
// processes on pseudo-terminals, serial devices, plain files — concurrently
// from a single controller. It watches each stream's output for regular
// expression matches under per-expectation deadlines, the way the classic
// expect tool does for one stream, generalised to N streams watched in
// parallel with interleaved, timestamped output.
package parexis
