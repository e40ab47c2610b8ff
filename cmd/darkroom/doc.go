// Command darkroom runs the image processing pipeline services: the intake
// API, the per-stage consumers, and operator utilities.
package main
