package tty

import (
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// decodeFixture expands the <DEL>/<TAB>/<BS> markers testdata/scenarios.txtar
// uses in place of literal control bytes, which don't survive well as
// plain text in a txtar archive.
func decodeFixture(data []byte) []byte {
	s := string(data)
	s = strings.ReplaceAll(s, "<DEL>", "\x7f")
	s = strings.ReplaceAll(s, "<TAB>", "\t")
	s = strings.ReplaceAll(s, "<BS>", "\b")
	return []byte(s)
}

func TestGoldenScenarios(t *testing.T) {
	ar, err := txtar.ParseFile("testdata/scenarios.txtar")
	if err != nil {
		t.Fatal(err)
	}
	ins := map[string][]byte{}
	outs := map[string][]byte{}
	for _, f := range ar.Files {
		name, kind, ok := strings.Cut(f.Name, ".")
		if !ok {
			continue
		}
		switch kind {
		case "in":
			ins[name] = decodeFixture(f.Data)
		case "out":
			outs[name] = decodeFixture(f.Data)
		}
	}
	if len(ins) == 0 {
		t.Fatal("no scenarios found in testdata/scenarios.txtar")
	}
	for name, in := range ins {
		want, ok := outs[name]
		if !ok {
			t.Fatalf("scenario %s has no matching .out fixture", name)
		}
		t.Run(name, func(t *testing.T) {
			l, be := newTestLine(t)
			l.InProcess(in)
			if got := be.echoed; string(got) != string(want) {
				t.Fatalf("echoed = %q, want %q", got, want)
			}
		})
	}
}
