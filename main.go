package main

import "github.com/audiolibrelab/tunefinder/cmd"

func main() {
	cmd.Execute()
}
