package main

import "github.com/RyanBlaney/sonido-notes/cmd"

func main() {
	cmd.Execute()
}
