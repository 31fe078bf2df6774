package main

import (
	"yourbody/cmd/cmd"
	"yourbody/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
