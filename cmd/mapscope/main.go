package main

import "github.com/MeKo-Tech/mapscope/internal/cmd"

func main() {
	cmd.Execute()
}
