package main

import "github.com/adanyl0v/go-taskdesk/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()
	defer app.CloseLogFile()

	app.MustConnectPostgres()
	defer app.DisconnectPostgres()

	app.MustRun()
}
