// fitool converts XML documents to and from the fast infoset binary form and
// inspects encoded documents.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/pflag"

	"github.com/jacoelho/fastinfoset"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

type command struct {
	name    string
	summary string
	run     func(env *env, args []string) int
}

var commands = []command{
	{"encode", "convert XML documents to fast infoset", runEncode},
	{"decode", "convert fast infoset documents to XML", runDecode},
	{"dump", "list the events of fast infoset documents", runDump},
	{"vocab", "validate a vocabulary file and print its fingerprint", runVocab},
}

// env holds the streams of one invocation.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func runWithArgs(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		if err := usage(stderr); err != nil {
			return 1
		}
		return 2
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(&env{stdin: stdin, stdout: stdout, stderr: stderr}, args[1:])
		}
	}
	if err := writef(stderr, "error: unknown command %q\n", args[0]); err != nil {
		return 1
	}
	if err := usage(stderr); err != nil {
		return 1
	}
	return 2
}

func usage(w io.Writer) error {
	errs := []error{
		writeln(w, "Usage: fitool <command> [options] [files]"),
		writeln(w),
		writeln(w, "Commands:"),
	}
	for _, c := range commands {
		errs = append(errs, writef(w, "  %-8s %s\n", c.name, c.summary))
	}
	return errors.Join(errs...)
}

// common are the options every command accepts.
type common struct {
	verbose    bool
	cpuProfile string
	memProfile string
}

func newFlagSet(e *env, name, synopsis string, c *common) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log debug records to stderr")
	fs.StringVar(&c.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	fs.StringVar(&c.memProfile, "memprofile", "", "write memory profile to file")
	fs.Usage = func() {
		_ = errors.Join(
			writef(e.stderr, "Usage: fitool %s %s\n\n", name, synopsis),
			writeln(e.stderr, "Options:"),
		)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and prepares logging and profiling. The returned stop
// function must be called when the command ends. A non-zero code means the
// command must exit with it.
func (c *common) parse(e *env, fs *pflag.FlagSet, args []string) (stop func(), code int) {
	if err := fs.Parse(args); err != nil {
		// pflag prints the usage for -h itself.
		if !errors.Is(err, pflag.ErrHelp) {
			_ = writef(e.stderr, "error: %v\n", err)
			fs.Usage()
		}
		return nil, 2
	}
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	e.logger = slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))

	var stops []func()
	if c.cpuProfile != "" {
		stopCPUProfile, err := startCPUProfile(c.cpuProfile)
		if err != nil {
			_ = writef(e.stderr, "error starting CPU profile: %v\n", err)
			return nil, 1
		}
		stops = append(stops, func() {
			if err := stopCPUProfile(); err != nil {
				_ = writef(e.stderr, "error stopping CPU profile: %v\n", err)
			}
		})
	}
	if c.memProfile != "" {
		path := c.memProfile
		stops = append(stops, func() {
			if err := writeMemProfile(path); err != nil {
				_ = writef(e.stderr, "error writing memory profile: %v\n", err)
			}
		})
	}
	return func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}, 0
}

// loadVocabulary reads a YAML vocabulary file. It returns nil when path is empty.
func loadVocabulary(path, uri string) (*fastinfoset.ExternalVocabulary, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary %s: %w", path, err)
	}
	defer f.Close()
	v, err := fastinfoset.ParseVocabulary(f)
	if err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	ext, err := fastinfoset.NewExternalVocabulary(uri, v)
	if err != nil {
		return nil, fmt.Errorf("compile vocabulary %s: %w", path, err)
	}
	return ext, nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}

func startCPUProfile(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile %s: %w", path, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return nil, fmt.Errorf("start cpu profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return nil, fmt.Errorf("start cpu profile %s: %w", path, err)
	}
	return func() error {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			return fmt.Errorf("close cpu profile %s: %w", path, err)
		}
		return nil
	}, nil
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mem profile %s: %w", path, err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return fmt.Errorf("write mem profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return fmt.Errorf("write mem profile %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close mem profile %s: %w", path, err)
	}
	return nil
}
