// Package ingest reads normative and disease workbooks and turns them into
// per-unit pipeline requests.
//
// The normative workbook carries an age column, a sex column (any header
// containing "sex" or "gender") and biomarker columns named
// <tissue>_<biomarker>. Disease workbook columns are matched by their
// _<biomarker> suffix and the prefix becomes the tissue label used for
// overlay gating.
package ingest
