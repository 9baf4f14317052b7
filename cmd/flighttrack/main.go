package main

import (
	"context"

	"github.com/use-agent/flighttrack/cmd/flighttrack/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
