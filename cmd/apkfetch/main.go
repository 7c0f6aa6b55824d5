package main

import "apkfetch/internal/cli"

func main() {
	cli.Execute()
}
