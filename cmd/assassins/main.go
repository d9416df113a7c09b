package main

import "github.com/mcoot/assassins-go/internal/cli"

func main() {
	cli.Execute()
}
