// Package notifier implements the terminal notification stage: once an
// image is stored, the workflow owner is mailed a share link.
package notifier
