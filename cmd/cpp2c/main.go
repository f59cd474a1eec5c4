package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	cpp2c "github.com/chances/cpp2c"
)

type cliFlags struct {
	gccxmlPath   string
	configPath   string
	includePaths string
	compiler     string

	suppressDL         bool
	suppressErrorArg   bool
	suppressExceptions bool
	suppressVerbose    bool
	suppressOperators  bool
	fullString         bool

	c99          bool
	camelCase    bool
	assumeCopy   bool
	assumeAssign bool
}

func newRootCmd() *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:           "cpp2c [flags] <header_file_path>",
		Short:         "Generate a C-linkage wrapper for a C++ header",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd, &f)
			if err != nil {
				return err
			}
			if _, err := cpp2c.Generate(args[0], opts); err != nil {
				return err
			}
			fmt.Println("Done.")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.gccxmlPath, "gccxml", "g", "", "The gccxml file path")
	flags.StringVarP(&f.configPath, "config", "c", "", "The config file path")
	flags.StringVarP(&f.includePaths, "include", "i", "", "List of include paths to look for header files (semicolon-separated)")
	flags.StringVarP(&f.compiler, "compiler", "t", "", "The compiler type")
	flags.BoolVarP(&f.suppressDL, "dl", "d", false, "Don't generate a def file (and a DllMain() function under Windows)")
	flags.BoolVarP(&f.suppressErrorArg, "error", "e", false, "Don't add error output args")
	flags.BoolVarP(&f.suppressExceptions, "nothrow", "n", false, "Don't generate exception handling code")
	flags.BoolVarP(&f.suppressVerbose, "verbose", "v", false, "Don't generate verbose output")
	flags.BoolVarP(&f.c99, "c99", "9", false, "Compiler with C99 support")
	flags.BoolVarP(&f.suppressOperators, "operator", "o", false, "Don't generate operators")
	flags.BoolVarP(&f.fullString, "string", "s", false, "Don't output std::string in a compact format")
	flags.BoolVar(&f.camelCase, "camel", false, "Output the functions in (Upper) Camel Case conventions (e.g.: FuncName and not func_name)")
	flags.BoolVar(&f.assumeCopy, "copy", false, "Assume public copy constructor for class declarations with no concrete classes")
	flags.BoolVar(&f.assumeAssign, "assign", false, "Assume public default constructor and assignment operator for class declarations with no concrete classes")
	return cmd
}

// buildOptions applies the precedence order: command line beats the
// config file, which beats the built-in defaults.
func buildOptions(cmd *cobra.Command, f *cliFlags) (*cpp2c.Options, error) {
	opts := cpp2c.DefaultOptions()
	if f.configPath != "" {
		if err := opts.LoadINI(f.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("gccxml") {
		opts.GccXMLPath = f.gccxmlPath
	}
	if flags.Changed("include") {
		opts.IncludePaths = cpp2c.SplitIncludePaths(f.includePaths)
	}
	if flags.Changed("compiler") {
		opts.Compiler = f.compiler
	}
	if flags.Changed("dl") {
		opts.GenerateDL = !f.suppressDL
	}
	if flags.Changed("error") {
		opts.GenerateErrorArg = !f.suppressErrorArg
	}
	if flags.Changed("nothrow") {
		opts.GenerateExceptionHandling = !f.suppressExceptions
	}
	if flags.Changed("verbose") {
		opts.Verbose = !f.suppressVerbose
	}
	if flags.Changed("c99") {
		opts.C99 = f.c99
	}
	if flags.Changed("operator") {
		opts.GenerateOperators = !f.suppressOperators
	}
	if flags.Changed("string") {
		opts.CompactString = !f.fullString
	}
	if flags.Changed("camel") {
		opts.CamelCase = f.camelCase
	}
	if flags.Changed("copy") {
		opts.AssumeCopy = f.assumeCopy
	}
	if flags.Changed("assign") {
		opts.AssumeAssign = f.assumeAssign
	}
	return opts, nil
}

func main() {
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cpp2c: %v\n", err)
		os.Exit(1)
	}
}
