// Package locator discovers geometry files and their texture companions in an
// asset directory, grouping them into immutable asset records ordered
// lexicographically for reproducible re-execution.
package locator
