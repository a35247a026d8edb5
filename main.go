package main

import (
	"github.com/sw33tLie/playscope/cmd"
)

func main() {
	cmd.Execute()
}
