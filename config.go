package cpp2c

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Parser turns a header file into a declaration tree. The default is
// the GCC-XML adapter; tests plug in prebuilt namespaces.
type Parser interface {
	Parse(headerPath string) (*Namespace, error)
}

// Options collects every toggle of a generation run. Precedence is
// command line over config file over the defaults below.
type Options struct {
	GccXMLPath   string
	IncludePaths []string
	Compiler     string

	GenerateDL                bool
	GenerateErrorArg          bool
	GenerateExceptionHandling bool
	Verbose                   bool
	C99                       bool
	GenerateOperators         bool
	CompactString             bool
	CamelCase                 bool
	AssumeCopy                bool
	AssumeAssign              bool
	IgnoreUnsupported         bool

	// OutputDir defaults to the working directory.
	OutputDir string

	// Parser overrides the external-parser adapter when set.
	Parser Parser
}

func DefaultOptions() *Options {
	return &Options{
		GenerateDL:                true,
		GenerateErrorArg:          true,
		GenerateExceptionHandling: true,
		Verbose:                   true,
		GenerateOperators:         true,
		CompactString:             true,
		IgnoreUnsupported:         true,
	}
}

// INI section names of the configuration file.
const (
	iniSectionMain   = "Cpp2C Config"
	iniSectionGccXML = "GccXml Config"
)

// LoadINI overlays settings from an INI config file. Missing sections
// and keys silently keep their current values; a malformed boolean is a
// configuration error.
func (o *Options) LoadINI(path string) error {
	cfg, err := ini.LoadSources(ini.LoadOptions{SpaceBeforeInlineComment: true}, path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	main := cfg.Section(iniSectionMain)
	bools := []struct {
		key string
		dst *bool
	}{
		{"generate_dl", &o.GenerateDL},
		{"generate_error_arg", &o.GenerateErrorArg},
		{"generate_exception_handling_code", &o.GenerateExceptionHandling},
		{"is_verbose", &o.Verbose},
		{"is_c99", &o.C99},
		{"generate_operators", &o.GenerateOperators},
		{"is_compact_string", &o.CompactString},
		{"is_camel_case", &o.CamelCase},
		{"is_assume_copy", &o.AssumeCopy},
		{"is_assume_assign", &o.AssumeAssign},
	}
	for _, b := range bools {
		key, err := main.GetKey(b.key)
		if err != nil {
			continue
		}
		v, err := key.Bool()
		if err != nil {
			return fmt.Errorf("config key %q: %w", b.key, err)
		}
		*b.dst = v
	}

	gccxml := cfg.Section(iniSectionGccXML)
	if key, err := gccxml.GetKey("gccxml_file_path"); err == nil {
		o.GccXMLPath = key.String()
	}
	if key, err := gccxml.GetKey("include_paths"); err == nil {
		o.IncludePaths = SplitIncludePaths(key.String())
	}
	if key, err := gccxml.GetKey("compiler_type"); err == nil {
		o.Compiler = key.String()
	}
	return nil
}

// SplitIncludePaths splits the semicolon-separated include-path list
// used by both the CLI and the config file.
func SplitIncludePaths(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
