package main

import "github.com/sambabib/versions-check/cmd"

func main() {
	cmd.Execute()
}
