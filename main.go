package main

import "scoperc/cmd"

func main() {
	cmd.Execute()
}
