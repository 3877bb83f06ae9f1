package main

import (
	"stemsep/src/application"
)

func main() {
	app := application.NewApp()
	app.Start()
	waitForever()
}

func waitForever() {
	<-make(chan bool)
}
