package main

import "github.com/KaramelBytes/enemcast/cmd"

func main() {
	cmd.Execute()
}
