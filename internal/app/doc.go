// Package app sequences one pipeline run: configuration resolution, logger
// construction, and the discover -> document -> bind -> build -> submit
// pipeline with dry-run, clean, and build-only modes.
package app
