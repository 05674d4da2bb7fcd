package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paularlott/mcp-toon/config"
	"github.com/paularlott/mcp-toon/seal"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExitCodes(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	t.Setenv("NO_COLOR", "1")
	dir := t.TempDir()
	good := writeFile(t, dir, "good.toon", "a: 1\nb[2]: x, y")
	bad := writeFile(t, dir, "bad.toon", "a[3]: 1, 2")
	doc := writeFile(t, dir, "doc.json", `{"users":[{"id":1,"name":"Ann"},{"id":2,"name":"Bo"}]}`)
	prose := writeFile(t, dir, "prose.txt", "no payload here")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"frobnicate"}, exitUsage},
		{"help", []string{"help"}, 0},
		{"command help", []string{"encode", "--help"}, 0},
		{"bad flag", []string{"encode", "--bogus"}, exitUsage},
		{"valid", []string{"validate", "-q", good}, 0},
		{"invalid", []string{"validate", "-q", bad}, exitInvalid},
		{"missing file", []string{"validate", filepath.Join(dir, "nope")}, exitError},
		{"too many files", []string{"validate", good, bad}, exitUsage},
		{"convert without target", []string{"convert", doc}, exitUsage},
		{"unknown format", []string{"convert", "--to", "ini", doc}, exitUsage},
		{"roundtrip", []string{"roundtrip", "-o", filepath.Join(dir, "rt"), doc}, 0},
		{"nothing to extract", []string{"extract", prose}, exitInvalid},
		{"unknown kind", []string{"extract", "--kind", "toml", prose}, exitUsage},
		{"keygen bad type", []string{"keygen", "--type", "rsa"}, exitUsage},
		{"call without url", []string{"call", "toon_encode"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(run(tt.args)); got != tt.want {
				t.Errorf("Expected exit %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEncodeToFile(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	dir := t.TempDir()
	in := writeFile(t, dir, "doc.json", `{"users":[{"id":1,"name":"Ann"},{"id":2,"name":"Bo"}]}`)
	out := filepath.Join(dir, "doc.toon")

	if err := run([]string{"encode", "-o", out, in}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "users[2]{id,name}:\n  1,Ann\n  2,Bo\n"
	if string(data) != want {
		t.Errorf("Expected %q, got %q", want, string(data))
	}

	if err := run([]string{"encode", "--delimiter", "|", "-o", out, in}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data, _ = os.ReadFile(out)
	if !strings.Contains(string(data), "1|Ann") {
		t.Errorf("Expected pipe delimited rows, got %q", string(data))
	}
}

func TestSealOpen(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := run([]string{"keygen", "-o", keyFile}); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	raw, err := os.ReadFile(keyFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seal.ParseKey(string(raw)); err != nil {
		t.Fatalf("generated key does not parse: %v", err)
	}

	in := writeFile(t, dir, "doc.toon", "a: 1")
	sealed := filepath.Join(dir, "doc.sealed")
	opened := filepath.Join(dir, "doc.opened")
	if err := run([]string{"seal", "--mode", "key", "--key-file", keyFile, "-o", sealed, in}); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := run([]string{"open", "--mode", "key", "--key-file", keyFile, "-o", opened, sealed}); err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := os.ReadFile(opened)
	if string(data) != "a: 1" {
		t.Errorf("Expected %q, got %q", "a: 1", string(data))
	}

	otherKey := filepath.Join(dir, "other")
	if err := run([]string{"keygen", "-o", otherKey}); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	err = run([]string{"open", "--mode", "key", "--key-file", otherKey, "-o", opened, sealed})
	if got := exitCode(err); got != exitInvalid {
		t.Errorf("Expected exit %d for the wrong key, got %d", exitInvalid, got)
	}
}

func TestParseArguments(t *testing.T) {
	args, err := parseArguments([]string{"json={\"a\":1}", "indent=4", "delimiter=|"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := args["json"].(map[string]any); !ok {
		t.Errorf("Expected json to decode to an object, got %T", args["json"])
	}
	if args["indent"] != float64(4) {
		t.Errorf("Expected indent 4, got %v", args["indent"])
	}
	if args["delimiter"] != "|" {
		t.Errorf("Expected delimiter %q, got %v", "|", args["delimiter"])
	}
	if _, err := parseArguments([]string{"novalue"}); err == nil {
		t.Error("Expected an error for an argument without =")
	}
}
