package main

import (
	"github.com/hotelops/stockpilot/internal/cli"
)

func main() {
	cli.Execute()
}
