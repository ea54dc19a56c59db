package parser

import (
	"path/filepath"
	"strings"

	"github.com/zhengyp36/crash-ext-tools/internal/backend"
)

// Backend names accepted by Options.Backend.
const (
	BackendGDB    = "gdb"
	BackendReplay = "replay"
)

const (
	DefaultGuardPrefix = "CRASH_HEAD_"
	DefaultFilePrefix  = "_CRASH_AUTO_HEAD_"
	DefaultGDBCommand  = "gdb -batch -nx"
	DefaultCacheSize   = 4096
	DefaultManifest    = ".ctypgen.yaml"
)

// Options control header generation.
//
// OutDir        – directory for generated headers; empty means next to the .in file
// GuardPrefix   – prefix of every per-type include guard macro
// FilePrefix    – prefix of the file-level include guard macro
// Backend       – "gdb" or "replay"
// GDBCommand    – command line used to start gdb; the query is appended as -ex
// ModuleCommand – gdb command loading one module named by "# module:" lines
// ReplayFile    – recorded session answering queries when Backend is "replay"
// RecordFile    – when set, every backend answer is saved to this file
// CacheSize     – entries of the per-run query cache (0 disables it)
// Manifest      – manifest path tracking generated headers
// Force         – regenerate even when the manifest says the header is current
// ExcludeTypes  – type names resolved as opaque placeholders, in addition to "-" lines
type Options struct {
	OutDir        string   `json:"out_dir,omitempty" yaml:"out_dir,omitempty" toml:"out_dir,omitempty" mapstructure:"out_dir,omitempty"`
	GuardPrefix   string   `json:"guard_prefix,omitempty" yaml:"guard_prefix,omitempty" toml:"guard_prefix,omitempty" mapstructure:"guard_prefix,omitempty"`
	FilePrefix    string   `json:"file_prefix,omitempty" yaml:"file_prefix,omitempty" toml:"file_prefix,omitempty" mapstructure:"file_prefix,omitempty"`
	Backend       string   `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend,omitempty" mapstructure:"backend,omitempty"`
	GDBCommand    string   `json:"gdb_command,omitempty" yaml:"gdb_command,omitempty" toml:"gdb_command,omitempty" mapstructure:"gdb_command,omitempty"`
	ModuleCommand string   `json:"module_command,omitempty" yaml:"module_command,omitempty" toml:"module_command,omitempty" mapstructure:"module_command,omitempty"`
	ReplayFile    string   `json:"replay_file,omitempty" yaml:"replay_file,omitempty" toml:"replay_file,omitempty" mapstructure:"replay_file,omitempty"`
	RecordFile    string   `json:"record_file,omitempty" yaml:"record_file,omitempty" toml:"record_file,omitempty" mapstructure:"record_file,omitempty"`
	CacheSize     int      `json:"cache_size,omitempty" yaml:"cache_size,omitempty" toml:"cache_size,omitempty" mapstructure:"cache_size,omitempty"`
	Manifest      string   `json:"manifest,omitempty" yaml:"manifest,omitempty" toml:"manifest,omitempty" mapstructure:"manifest,omitempty"`
	Force         bool     `json:"force,omitempty" yaml:"force,omitempty" toml:"force,omitempty" mapstructure:"force,omitempty"`
	ExcludeTypes  []string `json:"exclude_types,omitempty" yaml:"exclude_types,omitempty" toml:"exclude_types,omitempty" mapstructure:"exclude_types,omitempty"`
}

func NewOptions() *Options {
	return &Options{
		GuardPrefix:   DefaultGuardPrefix,
		FilePrefix:    DefaultFilePrefix,
		Backend:       BackendGDB,
		GDBCommand:    DefaultGDBCommand,
		ModuleCommand: backend.DefaultModuleCommand,
		CacheSize:     DefaultCacheSize,
		Manifest:      DefaultManifest,
	}
}

// Normalize fills defaults and cleans paths. It is safe to call repeatedly.
func (o *Options) Normalize() {
	if len(o.GuardPrefix) == 0 {
		o.GuardPrefix = DefaultGuardPrefix
	}
	if len(o.FilePrefix) == 0 {
		o.FilePrefix = DefaultFilePrefix
	}
	o.Backend = strings.ToLower(strings.TrimSpace(o.Backend))
	if len(o.Backend) == 0 {
		if o.ReplayFile != "" {
			o.Backend = BackendReplay
		} else {
			o.Backend = BackendGDB
		}
	}
	if len(strings.TrimSpace(o.GDBCommand)) == 0 {
		o.GDBCommand = DefaultGDBCommand
	}
	if len(strings.TrimSpace(o.ModuleCommand)) == 0 {
		o.ModuleCommand = backend.DefaultModuleCommand
	}
	if o.CacheSize < 0 {
		o.CacheSize = 0
	}
	if len(o.OutDir) > 0 {
		o.OutDir = filepath.Clean(o.OutDir)
	}
	if len(o.Manifest) == 0 {
		o.Manifest = DefaultManifest
	}

	excl := make([]string, 0, len(o.ExcludeTypes))
	for _, n := range o.ExcludeTypes {
		if n = normalizeTypeName(n); n != "" {
			excl = append(excl, n)
		}
	}
	o.ExcludeTypes = excl
}

// OutputPath maps a .in file to the header it generates.
func (o *Options) OutputPath(inFile string) string {
	base := strings.TrimSuffix(filepath.Base(inFile), filepath.Ext(inFile)) + ".h"
	dir := filepath.Dir(inFile)
	if o.OutDir != "" {
		dir = o.OutDir
	}
	return filepath.Join(dir, base)
}

// functional option pattern ---------------------------------------------------

type Option func(*Options)

func WithOutDir(d string) Option        { return func(o *Options) { o.OutDir = d } }
func WithGuardPrefix(p string) Option   { return func(o *Options) { o.GuardPrefix = p } }
func WithFilePrefix(p string) Option    { return func(o *Options) { o.FilePrefix = p } }
func WithGDBCommand(c string) Option    { return func(o *Options) { o.Backend, o.GDBCommand = BackendGDB, c } }
func WithModuleCommand(c string) Option { return func(o *Options) { o.ModuleCommand = c } }
func WithReplayFile(f string) Option    { return func(o *Options) { o.Backend, o.ReplayFile = BackendReplay, f } }
func WithRecordFile(f string) Option    { return func(o *Options) { o.RecordFile = f } }
func WithCacheSize(n int) Option        { return func(o *Options) { o.CacheSize = n } }
func WithManifest(path string) Option   { return func(o *Options) { o.Manifest = path } }
func WithForce() Option                 { return func(o *Options) { o.Force = true } }
func WithExcludeTypes(names ...string) Option {
	return func(o *Options) {
		for _, n := range names {
			o.ExcludeTypes = append(o.ExcludeTypes, strings.TrimSpace(n))
		}
	}
}

// Apply returns a normalized copy of NewOptions with opts applied.
func Apply(opts ...Option) *Options {
	o := NewOptions()
	for _, fn := range opts {
		fn(o)
	}
	o.Normalize()
	return o
}
