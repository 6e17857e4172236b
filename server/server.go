package server

import (
	"backend/calsync"
	"fmt"
	"gorm.io/gorm"
	"net/http"
)

var ServerStatus string = "unknown"

func BackendServer(
	db *gorm.DB,
	engine *calsync.Engine,
	host string,
	port int64,
) (*http.Server, string) {
	router := BackendRouting(db, engine)

	fullHost := fmt.Sprintf("http://%s:%d", host, port)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: router,
	}

	ServerStatus = "running"

	return server, fullHost
}
