package main

import (
	"flag"
	"net/http"
	"os"

	"campsync/internal/app/devserver"
	"campsync/internal/utils/logger"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	env := flag.String("env", "local", "environment (local, dev, prod)")
	flag.Parse()

	log := logger.New(*env)
	srv := devserver.New(log)

	log.Info("devserver listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
