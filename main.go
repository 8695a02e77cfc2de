package main

import "github.com/KaramelBytes/tablechat-cli/cmd"

func main() {
	cmd.Execute()
}
