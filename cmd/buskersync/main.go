package main

import "github.com/wltan/buskersync/internal/cli"

func main() {
	cli.Execute()
}
