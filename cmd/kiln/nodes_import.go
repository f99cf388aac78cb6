package main

// Blank imports ensure each reference node type's init() registration runs
// for the CLI binary.
import (
	_ "github.com/kilnbuild/kiln/internal/nodes/copynode"
	_ "github.com/kilnbuild/kiln/internal/nodes/gitsource"
	_ "github.com/kilnbuild/kiln/internal/nodes/uppercase"
	_ "github.com/kilnbuild/kiln/internal/nodes/xsltnode"
	_ "github.com/kilnbuild/kiln/internal/nodes/zipnode"
)
