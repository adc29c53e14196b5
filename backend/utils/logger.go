package utils

import (
	"log"
	"os"
)

// InitLogger returns the application logger writing to stdout.
func InitLogger() *log.Logger {
	return log.New(os.Stdout, "[skillpath] ", log.LstdFlags|log.LUTC)
}
