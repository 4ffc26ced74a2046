package main

import "ovpnscale/commands"

func main() {
	commands.Execute()
}
