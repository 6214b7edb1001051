package main

import "github.com/KaramelBytes/edaboard/cmd"

func main() {
	cmd.Execute()
}
