package main

import "github.com/agentic-research/apiout/cmd"

func main() {
	cmd.Execute()
}
