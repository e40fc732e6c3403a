package main

import "amplie/internal/cli"

func main() {
	cli.Execute()
}
