package main

import (
	"log"

	"github.com/c14220110/poliklinik-treatment/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
