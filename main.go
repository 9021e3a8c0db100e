// The main package for the noteharvest executable.
package main

import (
	"noteharvest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
