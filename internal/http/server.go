// README: HTTP gateway; wires module services into the gin engine.
package http

import (
	"go.uber.org/zap"

	"parcel/internal/http/handlers"
	"parcel/internal/infra"
)

type ServerDeps struct {
	Quotes        handlers.Quoter
	Assistant     handlers.Answerer
	Transcript    handlers.Recorder
	AllowedOrigin string
	Logger        *zap.Logger
	Metrics       *infra.Metrics
}

type Server struct {
	channel *handlers.ChannelHandler
	logger  *zap.Logger
	metrics *infra.Metrics
}

func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		channel: handlers.NewChannelHandler(deps.Quotes, deps.Assistant, deps.Transcript, deps.AllowedOrigin, logger, deps.Metrics),
		logger:  logger,
		metrics: deps.Metrics,
	}
}
