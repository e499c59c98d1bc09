package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestDefaultToolchain(t *testing.T) {
	t.Setenv("STAGE0_NASM", "")
	t.Setenv("STAGE0_CC", "")
	tc := DefaultToolchain()
	be.Equal(t, tc, Toolchain{Assembler: "nasm", Linker: "gcc"})

	t.Setenv("STAGE0_NASM", "yasm")
	t.Setenv("STAGE0_CC", "clang")
	tc = DefaultToolchain()
	be.Equal(t, tc, Toolchain{Assembler: "yasm", Linker: "clang"})
}

func TestToolchainUnavailable(t *testing.T) {
	tc := Toolchain{Assembler: "stage0-no-such-assembler", Linker: "gcc"}
	be.True(t, !tc.Available())
}

func TestBuildWritesIntermediateFiles(t *testing.T) {
	tc := DefaultToolchain()
	if !tc.Available() {
		t.Skip("nasm or gcc not available")
	}
	asm, err := Compile(`fn main(): int => { return 0; }`)
	be.Err(t, err, nil)

	dir := t.TempDir()
	exe := filepath.Join(dir, "prog")
	be.Err(t, tc.Build(asm, exe), nil)

	for _, path := range []string{exe, exe + ".asm", exe + ".o"} {
		_, err := os.Stat(path)
		be.Err(t, err, nil)
	}
}

func TestBuildReportsAssemblerFailure(t *testing.T) {
	tc := DefaultToolchain()
	if !tc.Available() {
		t.Skip("nasm or gcc not available")
	}
	err := tc.Build("this is not assembly\n", filepath.Join(t.TempDir(), "prog"))
	be.Err(t, err, "failed")
}
