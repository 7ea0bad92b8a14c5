package main

import "github.com/audiolibrelab/brainconv/cmd"

func main() {
	cmd.Execute()
}
