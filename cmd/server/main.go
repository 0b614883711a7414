package main

import "github.com/ilker/tracker-server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
