// Package coldetect partitions a binarized page image into vertical text
// columns using a vertical projection profile.
//
// Detection is a pure function of its input: no state, no I/O, deterministic
// output. Candidate boundaries are valleys of the profile below a foreground
// density threshold; valleys narrower than a minimum inter-column gap derived
// from the estimated character-cell width are merged so internal whitespace
// never splits a column. The result must contain between 2 and 6 columns;
// a sliding sweep of thresholds and gap scales widens the search before the
// caller-supplied column-count hint drives an even-split fallback.
package coldetect
