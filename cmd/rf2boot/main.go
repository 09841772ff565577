package main

import (
	"os"

	"rf2boot/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
