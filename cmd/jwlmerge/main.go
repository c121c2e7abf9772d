package main

import (
	"github.com/jwlmerge/jwlmerge/cmd/jwlmerge/cmd"
)

func main() {
	cmd.Execute()
}
