package main

import "github.com/ssematimba/gate-check/cmd"

func main() {
	cmd.Execute()
}
