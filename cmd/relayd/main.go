package main

import "github.com/tokenrelay/relayd/internal/cli"

func main() {
	cli.Execute()
}
