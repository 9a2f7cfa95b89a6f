// Package config loads the HCL pipeline configuration. Components receive
// configuration values explicitly through their constructors; nothing in this
// package is global or mutable after Load.
package config
