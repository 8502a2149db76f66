package events

import (
	log "github.com/sirupsen/logrus"

	"chatshop/pkg/domain/service"
	"chatshop/pkg/infrastructure/metrics"
)

// Dispatcher records domain events in the log and in the event counter.
type Dispatcher struct {
	logger  log.FieldLogger
	metrics *metrics.Metrics
}

func NewDispatcher(logger log.FieldLogger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{logger: logger, metrics: m}
}

func (d *Dispatcher) Dispatch(event service.Event) error {
	d.metrics.Events.WithLabelValues(event.Type()).Inc()
	d.logger.WithFields(log.Fields{
		"event":   event.Type(),
		"payload": event,
	}).Info("domain event")
	return nil
}
