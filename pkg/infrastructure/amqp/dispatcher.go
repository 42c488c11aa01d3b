package amqp

import (
	"encoding/json"
	"strings"
	"unicode"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/service"
)

// Dispatcher publishes domain events to a topic exchange. Routing keys are
// derived from the event type name, e.g. OrderFinalized -> order.finalized.
type Dispatcher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func Dial(url, exchange string) (*Dispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Dispatcher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (d *Dispatcher) Dispatch(event service.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := routingKey(event.Type())
	err = d.ch.Publish(d.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.WithField("routingKey", key).WithError(err).Error("event publish failed")
	}
	return err
}

func (d *Dispatcher) Close() {
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

func routingKey(eventType string) string {
	var b strings.Builder
	for i, r := range eventType {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NopDispatcher drops events. Used when no broker is configured.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(service.Event) error { return nil }
