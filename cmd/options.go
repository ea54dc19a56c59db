package cmd

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zhengyp36/crash-ext-tools/pkg/parser"
)

// optionFlags registers the flags shared by generate and check. Flag names
// match the keys of the "generate" config section, with '-' for '_'.
func optionFlags(fs *pflag.FlagSet) {
	d := parser.NewOptions()
	fs.StringP("out-dir", "o", d.OutDir, "directory for generated headers (default: next to each .in file)")
	fs.String("guard-prefix", d.GuardPrefix, "prefix of per-type include guard macros")
	fs.String("file-prefix", d.FilePrefix, "prefix of the file include guard macro")
	fs.StringP("backend", "b", "", "type information source: gdb or replay (default: replay when a replay file is set, else gdb)")
	fs.StringP("gdb-command", "g", d.GDBCommand, "gdb command line, e.g. \"gdb -batch -nx vmlinux\"")
	fs.String("module-command", d.ModuleCommand, "gdb command loading a module named by '# module:' lines")
	fs.StringP("replay-file", "r", d.ReplayFile, "recorded session answering type queries")
	fs.String("record-file", d.RecordFile, "save every backend answer to this session file")
	fs.Int("cache-size", d.CacheSize, "entries of the per-run query cache (0 disables it)")
	fs.StringP("manifest", "m", d.Manifest, "manifest tracking generated headers")
	fs.BoolP("force", "f", d.Force, "regenerate headers even when they are up to date")
	fs.StringSliceP("exclude-types", "x", d.ExcludeTypes, "type names never expanded, in addition to '-' lines")
}

// loadOptions merges, from lowest to highest priority: defaults, the
// "generate" config section, CTYPGEN_GENERATE_* variables, flags.
func loadOptions(fs *pflag.FlagSet) (*parser.Options, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix + "_GENERATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.MergeConfigMap(viper.GetStringMap("generate")); err != nil {
		return nil, errors.Wrap(err, "read generate config")
	}

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr == nil {
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	if bindErr != nil {
		return nil, errors.Wrap(bindErr, "bind flags")
	}

	opts := parser.NewOptions()
	if err := v.Unmarshal(opts); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "decode options"),
			"check the generate section of the config file")
	}
	opts.Normalize()
	return opts, nil
}
