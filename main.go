package main

import "github.com/cmdouglas/adoreport/cmd"

func main() {
	cmd.Execute()
}
