package main

import "solscreener/internal/cli"

func main() {
	cli.Execute()
}
