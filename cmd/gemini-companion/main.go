// gemini-companion bridges a Neovim instance to the Gemini CLI.
package main

import (
	"os"

	"github.com/gemini-nvim/ide-companion/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
