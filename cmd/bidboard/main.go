package main

import "github.com/nhle/bidboard/internal/cmd"

func main() {
	cmd.Execute()
}
