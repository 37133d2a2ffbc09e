package broadcast

import (
	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/room"
	"github.com/go-stomp/stomp/v3"
	"github.com/segmentio/encoding/json"
)

const broadcastTopicPrefix = "/topic/picksy.room."

// StompPublisher relays room events to the message broker so out-of-process
// websocket relays can forward them to clients. One broker topic per room.
type StompPublisher struct {
	conn *stomp.Conn
}

type StompConfig struct {
	Host     string
	Username string
	Password string
}

func NewStompPublisher(cfg StompConfig) (*StompPublisher, error) {
	conn, err := stomp.Dial("tcp", cfg.Host,
		stomp.ConnOpt.Login(cfg.Username, cfg.Password),
		stomp.ConnOpt.Host("/"),
	)
	if err != nil {
		return nil, err
	}
	return &StompPublisher{conn: conn}, nil
}

// Publish is fire-and-forget: a broker hiccup is logged and dropped, the
// room's authoritative state is unaffected and reconnecting clients catch
// up through reconciliation.
func (p *StompPublisher) Publish(roomCode string, event room.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Log.Errorf("BROADCAST: failed to marshal %s event: %v", event.Type, err)
		return
	}
	if err := p.conn.Send(broadcastTopicPrefix+roomCode, "application/json", payload); err != nil {
		logging.Log.Errorf("BROADCAST: failed to send %s to %s: %v", event.Type, roomCode, err)
	}
}

func (p *StompPublisher) Close() error {
	return p.conn.Disconnect()
}

// Fanout publishes each event to several broadcasters in order, typically
// the in-process hub plus the broker publisher.
type Fanout []room.Broadcaster

func (f Fanout) Publish(roomCode string, event room.Event) {
	for _, b := range f {
		b.Publish(roomCode, event)
	}
}
