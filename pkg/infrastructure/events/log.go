package events

import (
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/service"
)

// NewLogDispatcher records events in the service log when no broker is configured.
func NewLogDispatcher() service.EventDispatcher {
	return logDispatcher{}
}

type logDispatcher struct{}

func (logDispatcher) Dispatch(event service.Event) error {
	log.WithFields(log.Fields{"event": event.Type(), "payload": event}).Info("domain event")
	return nil
}
