// Package workflow drives a processing run over the discovered pages.
//
// The Manager claims pages from the checkpoint store in ascending order and
// hands them to a pool of page workers. Preprocessing and composition run
// CPU-parallel; recognition inside each page is bounded separately by the
// accelerator gate the stage runner holds. Run reprocesses every page from
// scratch, Resume skips pages already done and reclaims pages a crashed run
// left in processing. Per-page failures are recorded and never abort the
// run; only checkpoint store failures do.
package workflow
