package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Toolchain names the external assembler and linker driver.
type Toolchain struct {
	Assembler string
	Linker    string
}

// DefaultToolchain uses nasm and gcc, overridable through STAGE0_NASM and
// STAGE0_CC.
func DefaultToolchain() Toolchain {
	tc := Toolchain{Assembler: "nasm", Linker: "gcc"}
	if v := os.Getenv("STAGE0_NASM"); v != "" {
		tc.Assembler = v
	}
	if v := os.Getenv("STAGE0_CC"); v != "" {
		tc.Linker = v
	}
	return tc
}

// Available reports whether both tools can be found on PATH.
func (tc Toolchain) Available() bool {
	if _, err := exec.LookPath(tc.Assembler); err != nil {
		return false
	}
	_, err := exec.LookPath(tc.Linker)
	return err == nil
}

// Build assembles asm and links it into the executable exePath. The
// intermediate .asm and .o files are written next to exePath.
func (tc Toolchain) Build(asm string, exePath string) error {
	asmPath, objPath := artifactPaths(exePath)

	if err := os.WriteFile(asmPath, []byte(asm), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", asmPath, err)
	}

	cmd := exec.Command(tc.Assembler, "-f", "elf64", asmPath, "-o", objPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %v\nOutput: %s", tc.Assembler, err, output)
	}

	cmd = exec.Command(tc.Linker, objPath, "-o", exePath, "-z", "noexecstack", "-no-pie")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %v\nOutput: %s", tc.Linker, err, output)
	}
	return nil
}

// artifactPaths returns the intermediate files Build writes for exePath.
func artifactPaths(exePath string) (asmPath, objPath string) {
	base := strings.TrimSuffix(exePath, filepath.Ext(exePath))
	return base + ".asm", base + ".o"
}

// CompileAndRun builds source in a temporary directory, runs it and returns
// its standard output.
func (tc Toolchain) CompileAndRun(source string) (string, error) {
	asm, err := Compile(source)
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "stage0-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	exe := filepath.Join(dir, "program")
	if err := tc.Build(asm, exe); err != nil {
		return "", err
	}
	output, err := exec.Command(exe).Output()
	if err != nil {
		return string(output), fmt.Errorf("running program: %w", err)
	}
	return string(output), nil
}
