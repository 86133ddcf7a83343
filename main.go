package main

import "github.com/MichaelMishaev/assitentWAbot-sub006/cmd"

func main() {
	cmd.Execute()
}
