// Package metadata implements the EXIF extraction stage that fans out of
// image.fetched alongside the external annotation path.
package metadata
