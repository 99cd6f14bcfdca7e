package main

import (
	"github.com/groundwork-run/groundwork/cmd/groundwork/internal/command"
)

func main() {
	command.Execute()
}
