package main

import "github.com/blacktop/rimg/cmd/rimg/cmd"

func main() {
	cmd.Execute()
}
