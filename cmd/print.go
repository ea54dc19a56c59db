package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
)

// printError shows err with its details and hints.
func printError(err error) {
	pterm.Error.Println(err.Error())
	for _, d := range errors.GetAllDetails(err) {
		pterm.Printf("%s\n", pterm.Gray(d))
	}
	for _, h := range errors.GetAllHints(err) {
		pterm.Printf("  %s %s\n", pterm.LightCyan("hint:"), h)
	}
}
