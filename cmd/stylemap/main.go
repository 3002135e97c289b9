// Package main is the entry point of the stylemap command.
package main

import (
	"github.com/liuxd6825/stylemap/internal/cmd"
)

func main() {
	cmd.Execute()
}
