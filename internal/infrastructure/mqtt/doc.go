// Package mqtt provides the MQTT publisher used to announce new firmware.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - A retained status topic with Last Will and Testament
//   - Topic naming under a configurable prefix
//
// The tracker never subscribes. Consumers (chat bots, dashboards, home
// automation) subscribe to <prefix>/release/# and receive one JSON message
// per new release. A retained summary of the last cycle is kept on
// <prefix>/cycle.
//
// # Security Considerations
//
//   - Enable TLS for brokers outside the local host (cfg.Broker.TLS=true)
//   - The password is read from OPTRACKER_MQTT_PASSWORD and never logged
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Release("OnePlus9_eu", "Stable")
//	err = client.Publish(topic, payload, 1, true)
package mqtt
