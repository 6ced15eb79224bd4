package main

import "github.com/tanq16/rominator/cmd"

func main() {
	cmd.Execute()
}
