// Package fetcher implements the image acquisition stage. It downloads a
// workflow's source image, bounds its dimensions, and stages a normalized
// JPEG for the annotation and storage stages that follow.
package fetcher
