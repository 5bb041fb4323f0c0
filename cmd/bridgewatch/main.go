package main

import (
	"github.com/znnlabs/bridgewatch/internal/cli"
)

func main() {
	cli.Execute()
}
