package main

import "github.com/mechcore/firecontrol/cmd/firecontrol/cmd"

func main() {
	cmd.Execute()
}
