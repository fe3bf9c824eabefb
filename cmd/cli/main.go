package main

import "darwinawards/cmd/cli/command"

func main() {
	command.Execute()
}
