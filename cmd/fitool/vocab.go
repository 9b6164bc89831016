package main

import (
	"encoding/hex"
	"errors"
)

func runVocab(e *env, args []string) int {
	var (
		c   common
		uri string
	)
	fs := newFlagSet(e, "vocab", "[options] <vocabulary.yaml>", &c)
	fs.StringVar(&uri, "uri", "", "URI of the vocabulary (default derived from its fingerprint)")
	stop, code := c.parse(e, fs, args)
	if code != 0 {
		return code
	}
	defer stop()

	if fs.NArg() != 1 {
		if err := writeln(e.stderr, "error: exactly one vocabulary file argument is required"); err != nil {
			return 1
		}
		fs.Usage()
		return 2
	}
	ext, err := loadVocabulary(fs.Arg(0), uri)
	if err != nil {
		return fail(e, err)
	}
	v := ext.Vocabulary()
	sum, err := v.Fingerprint()
	if err != nil {
		return fail(e, err)
	}
	err = errors.Join(
		writef(e.stdout, "uri: %s\n", ext.URI()),
		writef(e.stdout, "fingerprint: %s\n", hex.EncodeToString(sum[:])),
		writef(e.stdout, "restricted alphabets: %d\n", len(v.RestrictedAlphabets)),
		writef(e.stdout, "encoding algorithms: %d\n", len(v.EncodingAlgorithms)),
		writef(e.stdout, "prefixes: %d\n", len(v.Prefixes)),
		writef(e.stdout, "namespace names: %d\n", len(v.NamespaceNames)),
		writef(e.stdout, "local names: %d\n", len(v.LocalNames)),
		writef(e.stdout, "element names: %d\n", len(v.ElementNames)),
		writef(e.stdout, "attribute names: %d\n", len(v.AttributeNames)),
		writef(e.stdout, "attribute values: %d\n", len(v.AttributeValues)),
		writef(e.stdout, "character chunks: %d\n", len(v.CharacterChunks)),
	)
	if err != nil {
		return 1
	}
	return 0
}
