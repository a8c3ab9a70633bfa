package main

import (
	"context"
	"log"

	"github.com/reseauechanges/annuaire/internal/client/cli"
	"github.com/reseauechanges/annuaire/internal/client/config"
)

func main() {

	cfg := config.LoadConfig()
	app := cli.NewApp(cfg)

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}

}
