package main

import "github.com/otnemrasordep/muspy/cmd"

func main() {
	cmd.Execute()
}
