package main

import "github.com/verbo-app/roomsync/internal/bootstrap"

func main() {
	bootstrap.Run()
}
