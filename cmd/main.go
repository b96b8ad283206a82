package main

import "github.com/vnkhanh/vocasync/cli"

func main() {
	cli.Execute()
}
