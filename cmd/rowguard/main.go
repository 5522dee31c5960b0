package main

import "github.com/ppiankov/rowguard/internal/cli"

func main() {
	cli.Execute()
}
