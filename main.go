package main

import "github.com/rubiojr/dopy/cmd"

var version = "v0.1.0"

func main() {
	cmd.Execute(version)
}
