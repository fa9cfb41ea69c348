package main

import (
	"github.com/linkgate/urlshortener/cmd"
	_ "github.com/linkgate/urlshortener/cmd/cli"
	_ "github.com/linkgate/urlshortener/cmd/server"
)

func main() {
	cmd.Execute()
}
