package main

import "github.com/oshokin/alarm-bridge/cmd/alarm-bridge-ctl/cmd"

func main() {
	cmd.Execute()
}
