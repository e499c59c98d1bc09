package main

// Compile translates one source file to NASM x86-64 assembly.
func Compile(source string) (string, error) {
	program, err := ParseProgram(source)
	if err != nil {
		return "", err
	}
	return NewGenerator().Generate(program)
}

// Check parses and analyzes source without keeping the assembly. It returns
// the resulting global symbols.
func Check(source string) ([]*Symbol, error) {
	program, err := ParseProgram(source)
	if err != nil {
		return nil, err
	}
	g := NewGenerator()
	if _, err := g.Generate(program); err != nil {
		return nil, err
	}
	return g.Symbols().Globals(), nil
}
