package main

import "time-for/cmd"

func main() {
	cmd.Execute()
}
