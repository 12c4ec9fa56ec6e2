package mqtt

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/dchest/uniuri"
	pm "github.com/eclipse/paho.mqtt.golang"
	"github.com/hapticlab/go-haptic-udp/internal/logging"
)

type MQTTClient struct {
	client    pm.Client
	baseTopic string
	setTopic  string
}

func NewMQTTClient(uri *url.URL, baseTopic string) *MQTTClient {
	opts := pm.NewClientOptions().AddBroker(uri.String()).SetClientID("haptic_mqtt_" + uniuri.New()).SetOnConnectHandler(onConnectHandler).SetConnectionLostHandler(onConnectionLostHandler)

	client := pm.NewClient(opts)
	return &MQTTClient{client: client, baseTopic: baseTopic, setTopic: baseTopic + "/set/#"}
}

func (mc *MQTTClient) Connect(h CommandHandler) error {
	if token := mc.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	prefix := strings.Replace(mc.setTopic, "#", "", 1)

	messageHandler := func(client pm.Client, msg pm.Message) {
		topic := msg.Topic()
		if !strings.HasPrefix(topic, prefix) {
			return
		}
		target := strings.Replace(topic, prefix, "", 1)

		bytes := msg.Payload()
		payload, err := parsePayload(&bytes)
		if err != nil {
			logging.Warn("Error unmarshalling JSON: %s %v", err, string(bytes))
			return
		}
		logging.Debug("Received message for %s: %s", target, payload.String())

		go func() {
			if err := h.HandleCommand(target, payload); err != nil {
				logging.Warn("Error handling command for %s: %v", target, err)
			}
		}()
	}

	if token := mc.client.Subscribe(mc.setTopic, 1, messageHandler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	logging.Info("Subscribed to %s", mc.setTopic)
	return nil
}

// PublishStatus retains one reply per device under <prefix>/status/<id>
// so dashboards see the fleet without racing discovery.
func (mc *MQTTClient) PublishStatus(id string, payload []byte) {
	topic := mc.baseTopic + "/status/" + id
	if token := mc.client.Publish(topic, 1, true, payload); token.Wait() && token.Error() != nil {
		logging.Warn("Error publishing to %s: %v", topic, token.Error())
	}
}

func (mc *MQTTClient) Disconnect() {
	logging.Info("Disconnecting from MQTT")

	if token := mc.client.Unsubscribe(mc.setTopic); token.Wait() && token.Error() != nil {
		logging.Warn("Error unsubscribing: %v", token.Error())
	}

	mc.client.Disconnect(250)
}

// parsePayload accepts both a bare JSON object and a string-wrapped one,
// which some home-automation publishers emit.
func parsePayload(bytes *[]byte) (*Command, error) {
	var payload Command
	if err := json.Unmarshal(*bytes, &payload); err == nil {
		return &payload, nil
	}

	var passOne string
	if err := json.Unmarshal(*bytes, &passOne); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(passOne), &payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

func onConnectHandler(c pm.Client) {
	logging.Info("Connected to MQTT")
}

func onConnectionLostHandler(c pm.Client, err error) {
	panic(err.Error())
}
