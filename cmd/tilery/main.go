package main

import "github.com/giannimassi/tilery/internal/cli"

func main() {
	cli.Execute()
}
