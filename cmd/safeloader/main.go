package main

import (
	"os"

	"safeloader/cli"
)

func main() {
	cli.Main(os.Args)
}
