// Package main is the entry point of the ptpsim command.
package main

import "github.com/sarchlab/ptpsim/ptpsim/cmd"

func main() {
	cmd.Execute()
}
