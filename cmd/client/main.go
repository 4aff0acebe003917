package main

import (
	"campsync/cmd/client/cmd"
)

func main() {
	cmd.Execute()
}
