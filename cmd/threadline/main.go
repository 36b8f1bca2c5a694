// Package main is the entry point for threadline.
package main

import "github.com/anthropics/threadline/internal/cli"

func main() {
	cli.Execute()
}
