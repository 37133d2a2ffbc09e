package broker

import (
	"context"

	"github.com/Kambolo/Picksy/broadcast"
	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/metrics"
	"github.com/go-stomp/stomp/v3"
	"github.com/segmentio/encoding/json"
)

const commandTopic = "/topic/picksy.command"

// Command is the wire shape of every inbound room command.
type Command struct {
	Cmd       string  `json:"cmd"`
	RoomCode  string  `json:"roomCode"`
	UserID    int64   `json:"userId"`
	Username  string  `json:"username,omitempty"`
	OptionIDs []int64 `json:"optionIds,omitempty"`
}

const (
	CmdJoin         = "JOIN"
	CmdLeave        = "LEAVE"
	CmdStartVoting  = "START_VOTING"
	CmdSubmitBallot = "SUBMIT_BALLOT"
	CmdOptionsEnded = "OPTIONS_ENDED"
	CmdNextCategory = "NEXT_CATEGORY"
	CmdEndVoting    = "END_VOTING"
	CmdCloseRoom    = "CLOSE_ROOM"
	CmdHeartbeat    = "HEARTBEAT"
)

// RoomSession is the slice of the room session the listener drives.
type RoomSession interface {
	Join(ctx context.Context, code string, userID int64, username string) (int64, error)
	Leave(ctx context.Context, code string, userID int64) error
	Touch(code string, userID int64)
	Start(ctx context.Context, code string, requesterID int64) error
	SubmitBallot(ctx context.Context, code string, participantID int64, optionIDs []int64) error
	EndOptions(ctx context.Context, code string, participantID int64) error
	Advance(ctx context.Context, code string, requesterID int64) error
	Finish(ctx context.Context, code string, requesterID int64) error
	Close(ctx context.Context, code string, requesterID int64) error
}

// Listener consumes room commands from the broker command topic and feeds
// them into the session. Command handling never blocks on a room for long:
// each room serializes internally, different rooms run in parallel.
type Listener struct {
	conn    *stomp.Conn
	session RoomSession
}

func NewListener(cfg broadcast.StompConfig, session RoomSession) (*Listener, error) {
	conn, err := stomp.Dial("tcp", cfg.Host,
		stomp.ConnOpt.Login(cfg.Username, cfg.Password),
		stomp.ConnOpt.Host("/"),
	)
	if err != nil {
		return nil, err
	}
	return &Listener{conn: conn, session: session}, nil
}

// Run subscribes and dispatches until ctx is cancelled or the broker
// connection dies.
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.conn.Subscribe(commandTopic, stomp.AckAuto)
	if err != nil {
		return err
	}
	logging.Log.Infof("BROKER: subscribed to %s", commandTopic)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C:
			if !ok {
				return stomp.ErrClosedUnexpectedly
			}
			if msg.Err != nil {
				logging.Log.Errorf("BROKER: receive failed: %v", msg.Err)
				continue
			}
			var cmd Command
			if err := json.Unmarshal(msg.Body, &cmd); err != nil {
				logging.Log.Warnf("BROKER: dropping unparseable command: %v", err)
				continue
			}
			l.Dispatch(ctx, cmd)
		}
	}
}

// Dispatch routes one command to the session. Errors are logged, not
// returned: a broker command has no reply channel, the sender observes the
// outcome through the room broadcast or by reconciling.
func (l *Listener) Dispatch(ctx context.Context, cmd Command) {
	metrics.CommandsProcessed.WithLabelValues(cmd.Cmd).Inc()

	var err error
	switch cmd.Cmd {
	case CmdJoin:
		_, err = l.session.Join(ctx, cmd.RoomCode, cmd.UserID, cmd.Username)
	case CmdLeave:
		err = l.session.Leave(ctx, cmd.RoomCode, cmd.UserID)
	case CmdStartVoting:
		err = l.session.Start(ctx, cmd.RoomCode, cmd.UserID)
	case CmdSubmitBallot:
		err = l.session.SubmitBallot(ctx, cmd.RoomCode, cmd.UserID, cmd.OptionIDs)
	case CmdOptionsEnded:
		err = l.session.EndOptions(ctx, cmd.RoomCode, cmd.UserID)
	case CmdNextCategory:
		err = l.session.Advance(ctx, cmd.RoomCode, cmd.UserID)
	case CmdEndVoting:
		err = l.session.Finish(ctx, cmd.RoomCode, cmd.UserID)
	case CmdCloseRoom:
		err = l.session.Close(ctx, cmd.RoomCode, cmd.UserID)
	case CmdHeartbeat:
		l.session.Touch(cmd.RoomCode, cmd.UserID)
	default:
		logging.Log.Warnf("BROKER: unknown command %q for room %s", cmd.Cmd, cmd.RoomCode)
		return
	}

	if err != nil {
		logging.Log.Warnf("BROKER: %s on %s by %d rejected: %v", cmd.Cmd, cmd.RoomCode, cmd.UserID, err)
	}
}

func (l *Listener) Close() error {
	return l.conn.Disconnect()
}
