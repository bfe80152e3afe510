package main

import "github.com/jlynch25/golang-ticketing/cli"

func main() {
	cli.Execute()
}
