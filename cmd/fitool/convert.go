package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/jacoelho/fastinfoset"
	"github.com/jacoelho/fastinfoset/internal/xmlio"
)

// convertFunc converts one input stream to out.
type convertFunc func(in io.Reader, out io.Writer) error

// batch runs a conversion over the command line inputs.
type batch struct {
	output string
	ext    string
	jobs   int
}

func (b *batch) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&b.output, "output", "o", "", "output file for a single input (default stdout)")
	fs.IntVarP(&b.jobs, "jobs", "j", 4, "files converted concurrently")
}

// run converts inputs with fn. No inputs or a single input write to the
// output file or stdout; several inputs are written next to each input with
// the extension replaced.
func (b *batch) run(e *env, inputs []string, fn convertFunc) error {
	if len(inputs) <= 1 {
		in := "-"
		if len(inputs) == 1 {
			in = inputs[0]
		}
		out := b.output
		if out == "" {
			out = "-"
		}
		return b.convertFile(e, in, out, fn)
	}
	if b.output != "" {
		return errors.New("--output requires a single input")
	}
	if b.jobs < 1 {
		return fmt.Errorf("--jobs must be positive, got %d", b.jobs)
	}
	if slices.Contains(inputs, "-") {
		return errors.New("stdin cannot be combined with other inputs")
	}
	var g errgroup.Group
	g.SetLimit(b.jobs)
	for _, in := range inputs {
		out := strings.TrimSuffix(in, filepath.Ext(in)) + b.ext
		g.Go(func() error {
			return b.convertFile(e, in, out, fn)
		})
	}
	return g.Wait()
}

func (b *batch) convertFile(e *env, inPath, outPath string, fn convertFunc) (err error) {
	in := e.stdin
	if inPath != "-" {
		f, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	out := e.stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(outPath)
			}
		}()
		out = f
	}
	if err := fn(in, out); err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}
	e.logger.Debug("converted", slog.String("input", inPath), slog.String("output", outPath))
	return nil
}

func runEncode(e *env, args []string) int {
	var (
		c          common
		b          = batch{ext: ".finf"}
		vocabPath  string
		vocabURI   string
		utf16      bool
		decl       bool
		noDoubleFF bool
	)
	fs := newFlagSet(e, "encode", "[options] [file.xml...]", &c)
	b.addFlags(fs)
	fs.StringVar(&vocabPath, "vocab", "", "YAML external vocabulary")
	fs.StringVar(&vocabURI, "vocab-uri", "", "URI of the external vocabulary (default derived from its fingerprint)")
	fs.BoolVar(&utf16, "utf16", false, "write literal strings as UTF-16")
	fs.BoolVar(&decl, "xml-declaration", false, "start documents with an XML declaration")
	fs.BoolVar(&noDoubleFF, "no-double-terminators", false, "never combine two terminations into one octet")
	stop, code := c.parse(e, fs, args)
	if code != 0 {
		return code
	}
	defer stop()

	ext, err := loadVocabulary(vocabPath, vocabURI)
	if err != nil {
		return fail(e, err)
	}
	opts := fastinfoset.NewEncoderOptions().
		WithExternalVocabulary(ext).
		WithUTF16(utf16).
		WithXMLDeclaration(decl).
		WithDoubleTerminators(!noDoubleFF).
		WithLogger(e.logger)
	if err := opts.Validate(); err != nil {
		return fail(e, err)
	}
	err = b.run(e, fs.Args(), func(in io.Reader, out io.Writer) error {
		enc, err := fastinfoset.NewEncoder(out, opts)
		if err != nil {
			return err
		}
		return xmlio.Read(in, enc)
	})
	if err != nil {
		return fail(e, err)
	}
	return 0
}

func runDecode(e *env, args []string) int {
	var (
		c         common
		b         = batch{ext: ".xml"}
		vocabPath string
		vocabURI  string
		decl      bool
	)
	fs := newFlagSet(e, "decode", "[options] [file.finf...]", &c)
	b.addFlags(fs)
	fs.StringVar(&vocabPath, "vocab", "", "YAML external vocabulary")
	fs.StringVar(&vocabURI, "vocab-uri", "", "URI of the external vocabulary (default derived from its fingerprint)")
	fs.BoolVar(&decl, "xml-declaration", false, "write an XML declaration before each document")
	stop, code := c.parse(e, fs, args)
	if code != 0 {
		return code
	}
	defer stop()

	ext, err := loadVocabulary(vocabPath, vocabURI)
	if err != nil {
		return fail(e, err)
	}
	opts := fastinfoset.NewDecoderOptions().
		WithExternalVocabulary(ext).
		WithLogger(e.logger)
	err = b.run(e, fs.Args(), func(in io.Reader, out io.Writer) error {
		dec, err := fastinfoset.NewDecoder(in, opts)
		if err != nil {
			return err
		}
		w := xmlio.NewWriter(out, decl)
		for {
			if err := dec.Decode(w); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return fail(e, err)
	}
	return 0
}

func fail(e *env, err error) int {
	if writeErr := writef(e.stderr, "error: %v\n", err); writeErr != nil {
		return 1
	}
	return 1
}
