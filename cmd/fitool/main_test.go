package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/jacoelho/fastinfoset"
)

const sampleXML = `<a:x xmlns:a="urn:t"><a:y>5</a:y><a:y>5</a:y><z k="v">text</z></a:x>`

func runTool(t *testing.T, stdin []byte, args ...string) (int, []byte, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runWithArgs(args, bytes.NewReader(stdin), &stdout, &stderr)
	return code, stdout.Bytes(), stderr.String()
}

func encodeSample(t *testing.T, args ...string) []byte {
	t.Helper()
	code, out, stderr := runTool(t, []byte(sampleXML), append([]string{"encode"}, args...)...)
	if code != 0 {
		t.Fatalf("encode exit = %d, stderr = %s", code, stderr)
	}
	return out
}

func TestUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, 2},
		{"help", []string{"--help"}, 2},
		{"unknown command", []string{"frobnicate"}, 2},
		{"unknown flag", []string{"encode", "--nope"}, 2},
		{"missing flag value", []string{"dump", "--format"}, 2},
		{"command help", []string{"decode", "-h"}, 2},
		{"vocab without file", []string{"vocab"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runTool(t, nil, tt.args...)
			if code != tt.want {
				t.Fatalf("exit = %d, want %d", code, tt.want)
			}
			if !strings.Contains(stderr, "Usage: fitool") {
				t.Fatalf("stderr = %q, want usage", stderr)
			}
		})
	}
}

func TestFlagErrorIsReported(t *testing.T) {
	code, _, stderr := runTool(t, nil, "encode", "--nope")
	if code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(stderr, "error: unknown flag: --nope") {
		t.Fatalf("stderr = %q, want unknown flag error", stderr)
	}
}

func TestEncodeDecode(t *testing.T) {
	fi := encodeSample(t)
	if !bytes.HasPrefix(fi, []byte{0xE0, 0x00, 0x00, 0x01}) {
		t.Fatalf("encoded prefix = % X, want E0 00 00 01", fi[:min(len(fi), 4)])
	}
	code, out, stderr := runTool(t, fi, "decode")
	if code != 0 {
		t.Fatalf("decode exit = %d, stderr = %s", code, stderr)
	}
	if got := strings.TrimSuffix(string(out), "\n"); got != sampleXML {
		t.Fatalf("decode output = %s, want %s", got, sampleXML)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	code, _, stderr := runTool(t, []byte("not fast infoset"), "decode")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Fatalf("stderr = %q, want error", stderr)
	}
}

func TestDumpFormats(t *testing.T) {
	fi := encodeSample(t)

	t.Run("text", func(t *testing.T) {
		code, out, stderr := runTool(t, fi, "dump")
		if code != 0 {
			t.Fatalf("dump exit = %d, stderr = %s", code, stderr)
		}
		for _, want := range []string{
			"start-document\n",
			"start-prefix a urn:t\n",
			"start-element {urn:t}a:x\n",
			`start-element z k="v"` + "\n",
			`characters "text"` + "\n",
			"end-element {urn:t}a:x\n",
			"end-document\n",
		} {
			if !strings.Contains(string(out), want) {
				t.Fatalf("dump output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		code, out, stderr := runTool(t, fi, "dump", "--format", "json")
		if code != 0 {
			t.Fatalf("dump exit = %d, stderr = %s", code, stderr)
		}
		var kinds []string
		sc := bufio.NewScanner(bytes.NewReader(out))
		for sc.Scan() {
			var r record
			if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
				t.Fatalf("line %q: %v", sc.Text(), err)
			}
			kinds = append(kinds, r.Kind)
		}
		if len(kinds) == 0 || kinds[0] != "start-document" || kinds[len(kinds)-1] != "end-document" {
			t.Fatalf("kinds = %v, want document start and end", kinds)
		}
	})

	t.Run("cbor", func(t *testing.T) {
		code, out, stderr := runTool(t, fi, "dump", "-f", "cbor")
		if code != 0 {
			t.Fatalf("dump exit = %d, stderr = %s", code, stderr)
		}
		dec := cbor.NewDecoder(bytes.NewReader(out))
		var first record
		if err := dec.Decode(&first); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if first.Kind != "start-document" {
			t.Fatalf("first kind = %q, want start-document", first.Kind)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if code, _, _ := runTool(t, fi, "dump", "--format", "yaml"); code != 1 {
			t.Fatalf("exit = %d, want 1", code)
		}
	})
}

func TestRecordString(t *testing.T) {
	r := record{
		Kind:      "start-element",
		Name:      "p:e",
		Namespace: "urn:e",
		Attrs:     []recordAttr{{Name: "id", Value: "1"}},
	}
	if got, want := r.String(), `start-element {urn:e}p:e id="1"`; got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
	r = record{Kind: "typed", Algorithm: fastinfoset.AlgorithmInt, Data: []int32{1, 2}}
	if got, want := r.String(), "typed int=[1 2]"; got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}

const vocabularyYAML = `
prefixes: [a]
namespace_names: ["urn:t"]
local_names: [x, y, z, k]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

func TestExternalVocabulary(t *testing.T) {
	dir := t.TempDir()
	vocab := writeFile(t, dir, "vocab.yaml", vocabularyYAML)

	plain := encodeSample(t)
	withVocab := encodeSample(t, "--vocab", vocab, "--vocab-uri", "urn:v")
	if len(withVocab) >= len(plain) {
		t.Fatalf("encoded size with vocabulary = %d, want less than %d", len(withVocab), len(plain))
	}

	code, out, stderr := runTool(t, withVocab, "decode", "--vocab", vocab, "--vocab-uri", "urn:v")
	if code != 0 {
		t.Fatalf("decode exit = %d, stderr = %s", code, stderr)
	}
	if got := strings.TrimSuffix(string(out), "\n"); got != sampleXML {
		t.Fatalf("decode output = %s, want %s", got, sampleXML)
	}

	if code, _, _ := runTool(t, withVocab, "decode"); code != 1 {
		t.Fatalf("decode without vocabulary exit = %d, want 1", code)
	}
}

func TestVocabCommand(t *testing.T) {
	dir := t.TempDir()
	vocab := writeFile(t, dir, "vocab.yaml", vocabularyYAML)

	code, out, stderr := runTool(t, nil, "vocab", vocab)
	if code != 0 {
		t.Fatalf("vocab exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(string(out), "uri: urn:fastinfoset:vocabulary:blake3:") {
		t.Fatalf("vocab output = %s, want derived uri", out)
	}
	if !strings.Contains(string(out), "local names: 4\n") {
		t.Fatalf("vocab output = %s, want local name count", out)
	}

	code, out, _ = runTool(t, nil, "vocab", "--uri", "urn:v", vocab)
	if code != 0 || !strings.HasPrefix(string(out), "uri: urn:v\n") {
		t.Fatalf("vocab --uri exit = %d, output = %s", code, out)
	}

	bad := writeFile(t, dir, "bad.yaml", "prefixes: [\"\"]\n")
	if code, _, _ := runTool(t, nil, "vocab", bad); code != 1 {
		t.Fatalf("vocab with empty entry exit = %d, want 1", code)
	}
}

func TestBatchConversion(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeFile(t, dir, "one.xml", `<one/>`),
		writeFile(t, dir, "two.xml", sampleXML),
	}
	args := append([]string{"encode", "--jobs", "2"}, inputs...)
	if code, _, stderr := runTool(t, nil, args...); code != 0 {
		t.Fatalf("encode exit = %d, stderr = %s", code, stderr)
	}
	encoded := []string{filepath.Join(dir, "one.finf"), filepath.Join(dir, "two.finf")}
	for _, path := range encoded {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("Stat(%s) error = %v", path, err)
		}
	}

	if err := os.Remove(inputs[1]); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	args = append([]string{"decode"}, encoded...)
	if code, _, stderr := runTool(t, nil, args...); code != 0 {
		t.Fatalf("decode exit = %d, stderr = %s", code, stderr)
	}
	got, err := os.ReadFile(inputs[1])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.TrimSuffix(string(got), "\n") != sampleXML {
		t.Fatalf("decoded file = %s, want %s", got, sampleXML)
	}

	args = append([]string{"encode", "-o", filepath.Join(dir, "out.finf")}, inputs[0], inputs[0])
	if code, _, _ := runTool(t, nil, args...); code != 1 {
		t.Fatalf("encode with --output and several inputs exit = %d, want 1", code)
	}
}

func TestEncodeRejectsMalformedXML(t *testing.T) {
	code, _, stderr := runTool(t, []byte(`<a><b></a>`), "encode")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "closed by") {
		t.Fatalf("stderr = %q, want mismatched end tag", stderr)
	}
}
