package main

import (
	"socialhub/config"
	"socialhub/internal/app"

	"go.uber.org/fx"
)

func main() {
	cfg := config.LoadConfig()
	fx.New(app.Module(cfg), app.EventLogger()).Run()
}
