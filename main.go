/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/streamwork/hierarchy-gin/cmd"

func main() {
	cmd.Execute()
}
