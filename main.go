package main

import "github.com/moyu-x/mediastamp/cmd"

func main() {
	cmd.Execute()
}
