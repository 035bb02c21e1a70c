// @title Tensosense API
// @version 1.0
// @description Telemetry hub for Tensosense acceleration and tension sensors.
// @BasePath /api
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"tensosense-server-go/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [Bootstrap] starting tensosense-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "tensosense-server failed: %v\n", err)
		os.Exit(1)
	}
}
