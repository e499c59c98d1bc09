package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nalgeon/be"
)

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		filename string
		asmOnly  bool
		want     string
	}{
		{"hello.s0", false, "hello"},
		{"hello.s0", true, "hello.asm"},
		{"dir/hello.s0", false, "dir/hello"},
		{"prog", false, "prog.out"},
		{"dir/prog", false, "dir/prog.out"},
		{"prog", true, "prog.asm"},
	}
	for _, tt := range tests {
		be.Equal(t, defaultOutputPath(tt.filename, tt.asmOnly), tt.want)
	}
}

func TestCheckOutputPaths(t *testing.T) {
	tests := []struct {
		filename   string
		outputFile string
		asmOnly    bool
		want       string
	}{
		{"prog", "prog", false, "would overwrite the source file prog"},
		{"prog", "./prog", false, "would overwrite the source file"},
		{"prog.asm", "prog", false, "output prog.asm would overwrite"},
		{"prog.o", "prog", false, "output prog.o would overwrite"},
		{"prog.asm", "prog.asm", true, "would overwrite"},
	}
	for _, tt := range tests {
		err := checkOutputPaths(tt.filename, tt.outputFile, tt.asmOnly)
		be.Err(t, err, tt.want)
	}

	be.Err(t, checkOutputPaths("prog", "prog.out", false), nil)
	be.Err(t, checkOutputPaths("hello.s0", "hello", false), nil)
	be.Err(t, checkOutputPaths("prog.asm", "prog.s", true), nil)
}

// fakeTool writes a shell script that writes LINKED to the path after -o.
func fakeTool(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-tool")
	script := `#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then
    shift
    echo LINKED > "$1"
  fi
  shift
done
`
	be.Err(t, os.WriteFile(path, []byte(script), 0755), nil)
	return path
}

func TestBuildKeepsExtensionlessSource(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	toolDir := t.TempDir()
	tool := fakeTool(t, toolDir)
	t.Setenv("STAGE0_NASM", tool)
	t.Setenv("STAGE0_CC", tool)

	dir := t.TempDir()
	src := filepath.Join(dir, "prog")
	source := "fn main(): int => { return 0; }\n"
	be.Err(t, os.WriteFile(src, []byte(source), 0644), nil)

	out := defaultOutputPath(src, false)
	be.Equal(t, out, src+".out")
	be.Err(t, checkOutputPaths(src, out, false), nil)

	asm, err := Compile(source)
	be.Err(t, err, nil)
	be.Err(t, writeBuild(DefaultToolchain(), asm, out, false), nil)

	got, err := os.ReadFile(src)
	be.Err(t, err, nil)
	be.Equal(t, string(got), source)

	linked, err := os.ReadFile(out)
	be.Err(t, err, nil)
	be.Equal(t, string(linked), "LINKED\n")

	written, err := os.ReadFile(filepath.Join(dir, "prog.asm"))
	be.Err(t, err, nil)
	be.Equal(t, string(written), asm)
}

func TestWriteBuildAsmOnly(t *testing.T) {
	out := filepath.Join(t.TempDir(), "hello.asm")
	tc := Toolchain{Assembler: "stage0-no-such-assembler", Linker: "stage0-no-such-linker"}
	be.Err(t, writeBuild(tc, "default rel\n", out, true), nil)

	got, err := os.ReadFile(out)
	be.Err(t, err, nil)
	be.Equal(t, string(got), "default rel\n")
}
