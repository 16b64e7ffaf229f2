package main

import (
	"github.com/example/parking-sniper/cmd"
	"github.com/example/parking-sniper/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logging.Init()
	cmd.Execute()
}
