package main

import (
	"github.com/corray333/backend-labs/takeout/internal/app"
	"github.com/corray333/backend-labs/takeout/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
