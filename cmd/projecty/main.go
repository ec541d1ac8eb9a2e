package main

import "github.com/projecty/backend/internal/cli"

func main() {
	cli.Execute()
}
