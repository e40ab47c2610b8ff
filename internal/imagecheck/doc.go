// Package imagecheck validates intake URLs without downloading their bodies.
//
// Not every origin honors HEAD, so a failed existence probe falls back to a
// one-byte ranged GET before the URL is declared unreachable.
package imagecheck
