package cmd

import (
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/zhengyp36/crash-ext-tools/pkg/action/generate"
)

func init() {
	var generateCmd = NewGenerateCommand()
	rootCmd.AddCommand(generateCmd)
}

func NewGenerateCommand() *cobra.Command {
	var watch bool

	// generateCmd represents the ctypgen generate command
	var generateCmd = &cobra.Command{
		Use:     "generate <file.in>...",
		Aliases: []string{"gen"},
		Short:   "generate C headers",
		Long: `Generate one C header per .in file. Each line of a .in file names a root
type ("struct inode", "my_size_t", "int (*cb)(char *, int);"); every type it
depends on is queried from gdb (or a recorded session) and declared once,
dependencies first. "-name" lines are never expanded, "# module: a, b" lines
load module debug information before the types that follow.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			opts, err := loadOptions(c.Flags())
			if err != nil {
				return err
			}

			results, err := generate.Run(c.Context(), opts, args...)
			for _, res := range results {
				printResult(res, nil)
			}
			if err != nil || !watch {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
			defer stop()
			pterm.Info.Printfln("watching %d input(s), Ctrl-C to stop", len(args))
			return generate.Watch(ctx, opts, printResult, args...)
		},
	}
	optionFlags(generateCmd.Flags())
	generateCmd.Flags().BoolVarP(&watch, "watch", "w", false, "regenerate headers whenever an input changes")

	return generateCmd
}

func printResult(res generate.Result, err error) {
	switch {
	case err != nil:
		printError(err)
	case res.Skipped:
		pterm.Printf("  %s %s\n", pterm.Gray("= up to date:"), pterm.White(res.Output))
	default:
		pterm.Printf("  %s %s %s\n", pterm.LightGreen("✓ Generated:"), pterm.White(res.Output),
			pterm.Gray("("+res.Stats.String()+")"))
	}
}
