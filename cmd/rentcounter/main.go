package main

import (
	"context"
	"log"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
