package main

import (
	"os"

	glyphcmder "github.com/papercomputeco/glyph/cmd/glyph"
)

func main() {
	cmd := glyphcmder.NewGlyphCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
