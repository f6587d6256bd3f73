package main

import (
	"os"

	"kvbench/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
