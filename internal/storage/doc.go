// Package storage implements the publishing stage: annotated images are
// uploaded to the object store and shared via presigned links.
package storage
