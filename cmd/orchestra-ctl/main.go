package main

import "github.com/oshokin/light-orchestra/cmd/orchestra-ctl/cmd"

func main() {
	cmd.Execute()
}
