package main

import "interviewer/cmd"

func main() {
	cmd.Execute()
}
