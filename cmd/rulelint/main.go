package main

import (
	"os"

	"github.com/conduit-lang/rulelint/internal/cli/commands"
)

func main() {
	os.Exit(commands.Execute())
}
