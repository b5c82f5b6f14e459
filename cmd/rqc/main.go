package main

import "github.com/blt/rqc/cmd/rqc/cmd"

func main() {
	cmd.Execute()
}
