package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/Kambolo/Picksy/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	calls     []string
	lastCode  string
	lastUser  int64
	lastName  string
	lastOpts  []int64
	returnErr error
}

func (f *fakeSession) record(call, code string, userID int64) {
	f.calls = append(f.calls, call)
	f.lastCode = code
	f.lastUser = userID
}

func (f *fakeSession) Join(_ context.Context, code string, userID int64, username string) (int64, error) {
	f.record("join", code, userID)
	f.lastName = username
	return userID, f.returnErr
}

func (f *fakeSession) Leave(_ context.Context, code string, userID int64) error {
	f.record("leave", code, userID)
	return f.returnErr
}

func (f *fakeSession) Touch(code string, userID int64) {
	f.record("touch", code, userID)
}

func (f *fakeSession) Start(_ context.Context, code string, requesterID int64) error {
	f.record("start", code, requesterID)
	return f.returnErr
}

func (f *fakeSession) SubmitBallot(_ context.Context, code string, participantID int64, optionIDs []int64) error {
	f.record("submit", code, participantID)
	f.lastOpts = optionIDs
	return f.returnErr
}

func (f *fakeSession) EndOptions(_ context.Context, code string, participantID int64) error {
	f.record("endOptions", code, participantID)
	return f.returnErr
}

func (f *fakeSession) Advance(_ context.Context, code string, requesterID int64) error {
	f.record("advance", code, requesterID)
	return f.returnErr
}

func (f *fakeSession) Finish(_ context.Context, code string, requesterID int64) error {
	f.record("finish", code, requesterID)
	return f.returnErr
}

func (f *fakeSession) Close(_ context.Context, code string, requesterID int64) error {
	f.record("close", code, requesterID)
	return f.returnErr
}

func setupListener(t *testing.T) (*Listener, *fakeSession) {
	t.Helper()
	logging.Log = logrus.New()
	fake := &fakeSession{}
	return &Listener{session: fake}, fake
}

func TestDispatchRoutesCommands(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{CmdJoin, "join"},
		{CmdLeave, "leave"},
		{CmdStartVoting, "start"},
		{CmdSubmitBallot, "submit"},
		{CmdOptionsEnded, "endOptions"},
		{CmdNextCategory, "advance"},
		{CmdEndVoting, "finish"},
		{CmdCloseRoom, "close"},
		{CmdHeartbeat, "touch"},
	}

	for _, tc := range tests {
		t.Run(tc.cmd, func(t *testing.T) {
			listener, fake := setupListener(t)

			listener.Dispatch(context.Background(), Command{
				Cmd:      tc.cmd,
				RoomCode: "ABC1234",
				UserID:   99,
			})

			assert.Equal(t, []string{tc.want}, fake.calls)
			assert.Equal(t, "ABC1234", fake.lastCode)
			assert.Equal(t, int64(99), fake.lastUser)
		})
	}
}

func TestDispatchPassesJoinUsername(t *testing.T) {
	listener, fake := setupListener(t)

	listener.Dispatch(context.Background(), Command{
		Cmd:      CmdJoin,
		RoomCode: "ABC1234",
		UserID:   5,
		Username: "alice",
	})

	assert.Equal(t, "alice", fake.lastName)
}

func TestDispatchPassesBallotOptions(t *testing.T) {
	listener, fake := setupListener(t)

	listener.Dispatch(context.Background(), Command{
		Cmd:       CmdSubmitBallot,
		RoomCode:  "ABC1234",
		UserID:    5,
		OptionIDs: []int64{11, 12},
	})

	assert.Equal(t, []int64{11, 12}, fake.lastOpts)
}

func TestDispatchIgnoresUnknownCommand(t *testing.T) {
	listener, fake := setupListener(t)

	listener.Dispatch(context.Background(), Command{Cmd: "DANCE", RoomCode: "ABC1234"})

	assert.Empty(t, fake.calls)
}

func TestDispatchSwallowsSessionErrors(t *testing.T) {
	listener, fake := setupListener(t)
	fake.returnErr = errors.New("room is gone")

	// must not panic or surface the error to the caller
	listener.Dispatch(context.Background(), Command{
		Cmd:      CmdStartVoting,
		RoomCode: "ABC1234",
		UserID:   1,
	})

	assert.Equal(t, []string{"start"}, fake.calls)
}
