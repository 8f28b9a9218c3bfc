package main

import "github.com/Yates-Labs/precis/cmd"

func main() {
	cmd.Execute()
}
