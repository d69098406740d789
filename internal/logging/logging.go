package logging

import (
	"os"

	"go.uber.org/zap"
)

// New builds the process logger: production JSON config by default,
// development console output when ENVIRONMENT=development.
func New() (*zap.Logger, error) {
	if os.Getenv("ENVIRONMENT") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
