// Package report renders catalog statistics as a markdown document. It only
// reads the store; detection and consolidation logic never depend on it.
package report
