package main

import (
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/oshokin/light-orchestra/cmd/orchestra-server/cmd"
)

func main() {
	cmd.Execute()
}
