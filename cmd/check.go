package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/zhengyp36/crash-ext-tools/pkg/action/check"
)

// ErrStale is returned by check when a header differs from its input.
var ErrStale = errors.New("stale headers")

func init() {
	var checkCmd = NewCheckCommand()
	rootCmd.AddCommand(checkCmd)
}

func NewCheckCommand() *cobra.Command {
	var quiet bool

	// checkCmd represents the ctypgen check command
	var checkCmd = &cobra.Command{
		Use:   "check <file.in>...",
		Short: "verify generated headers are current",
		Long:  "Regenerate each header in memory and report how it differs from the file on disk. Exits non-zero when any header is stale.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			opts, err := loadOptions(c.Flags())
			if err != nil {
				return err
			}

			results, err := check.Run(c.Context(), opts, args...)
			if err != nil {
				return err
			}

			stale := 0
			for _, res := range results {
				switch {
				case res.Missing:
					stale++
					pterm.Printf("  %s %s\n", pterm.LightRed("✗ Missing:"), pterm.White(res.Output))
				case res.Stale():
					stale++
					pterm.Printf("  %s %s\n", pterm.LightYellow("✗ Stale:"), pterm.White(res.Output))
					if !quiet {
						pterm.Println(res.Diff)
					}
				default:
					pterm.Printf("  %s %s\n", pterm.LightGreen("✓ Current:"), pterm.White(res.Output))
				}
			}
			if stale > 0 {
				return errors.WithHint(errors.Wrapf(ErrStale, "%d of %d", stale, len(results)),
					"run ctypgen generate --force to refresh them")
			}
			return nil
		},
	}
	optionFlags(checkCmd.Flags())
	checkCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print diffs")

	return checkCmd
}
