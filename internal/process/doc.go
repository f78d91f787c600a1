// Package process manages the process groups of external render commands.
package process
