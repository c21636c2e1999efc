package main

import "bid-activity-alerts/internal/cli"

func main() {
	cli.Execute()
}
