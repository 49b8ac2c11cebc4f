package main

import "github.com/forPelevin/lecturecut/internal/cli"

func main() {
	cli.Main()
}
