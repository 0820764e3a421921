package main

import "github.com/tunetalk/tunetalk/cmd"

func main() {
	cmd.Execute()
}
