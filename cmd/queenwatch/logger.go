package main

import (
	"go.uber.org/zap"
)

// NewLogger returns a production logger, or a development one when dev is set
func NewLogger(dev bool) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}
