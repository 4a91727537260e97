package mqtt

import (
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"

	"github.com/sweeney/epaper-display/internal/sensor"
)

// offlinePublisher has a client that never connected.
func offlinePublisher() *RealPublisher {
	return &RealPublisher{
		client: paho.NewClient(paho.NewClientOptions().AddBroker("tcp://127.0.0.1:1")),
		log:    logr.Discard(),
		buffer: newRingBuffer(BufferSize),
	}
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	p := offlinePublisher()
	if p.IsConnected() {
		t.Fatal("client should not be connected")
	}
	if err := p.PublishSensors(sensor.Snapshot{Time: time.Now()}); err != nil {
		t.Fatalf("PublishSensors: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if got := p.Buffered(); got != 2 {
		t.Errorf("Buffered: got %d, want 2", got)
	}
}

func TestRealPublisherBufferIsBounded(t *testing.T) {
	p := offlinePublisher()
	for i := 0; i < BufferSize+10; i++ {
		p.PublishKey(KeyEvent{Timestamp: time.Now()})
	}
	if got := p.Buffered(); got != BufferSize {
		t.Errorf("Buffered: got %d, want %d", got, BufferSize)
	}
}
