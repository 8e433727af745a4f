package main

import "github.com/RyanBlaney/sonido-rhythm/cli"

func main() {
	cli.Execute()
}
