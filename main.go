package main

import "ytaudio-bot/cmd"

func main() {
	cmd.Execute()
}
