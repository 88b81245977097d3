package main

import "github.com/trifab/trifab/cmd/trifab/cmd"

func main() {
	cmd.Execute()
}
