package main

import "github.com/javi11/rardirfs/cmd/rardirfs/cmd"

func main() {
	cmd.Execute()
}
