package main

import "hrreview/internal/app/server"

func main() {
	server.Run()
}
