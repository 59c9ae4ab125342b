package main

import "github.com/oshokin/alarm-bridge/cmd/alarm-bridge/cmd"

func main() {
	cmd.Execute()
}
