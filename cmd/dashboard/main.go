package main

import "github.com/hongminglow/fieldops-dashboard/internal/cli"

func main() {
	cli.Execute()
}
