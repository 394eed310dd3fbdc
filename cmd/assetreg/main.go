/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/assetreg/cmd/assetreg/cmd"
	"github.com/ssargent/assetreg/pkg/di"
)

func main() {
	container := di.NewContainer()
	cmd.SetContainer(container)
	cmd.Execute()
}
