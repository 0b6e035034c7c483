package main

import "github.com/OpenTraceLab/spibutton/cmd/spibutton/cmd"

func main() {
	cmd.Execute()
}
