package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slot-booking/internal/dto"
	"github.com/noah-isme/slot-booking/internal/models"
	"github.com/noah-isme/slot-booking/pkg/codec"
	"github.com/noah-isme/slot-booking/pkg/framing"
)

var appt = models.Appointment{
	Provider: models.ServiceProvider{Name: "Haakon Doctorsen"},
	Slot:     models.TimeSlot{Year: 2019, Month: 2, Day: 20, Hour: 15},
}

func TestRequestBuilderIncrementsRequestID(t *testing.T) {
	b := NewRequestBuilder()

	login := b.Login("User1", "pwd1")
	assert.Equal(t, dto.AnonymousClientID, login.ClientID)
	assert.Equal(t, int64(1), login.RequestID)
	assert.Equal(t, dto.TypeLogin, login.Type)

	b.SetSession(1, "tok")
	add := b.AddAppointmentToBasket(appt)
	assert.Equal(t, int64(1), add.ClientID)
	assert.Equal(t, int64(2), add.RequestID)
	assert.Equal(t, "tok", add.Token)
	require.NotNil(t, add.Appointment)
	assert.Equal(t, "Haakon Doctorsen", add.Appointment.ServiceProvider)
	assert.Equal(t, 15, add.Appointment.TimeSlot.Hour)

	all := b.ListAvailableAppointments("")
	assert.Nil(t, all.ServiceProvider)
	one := b.ListAvailableAppointments("Haakon Doctorsen")
	require.NotNil(t, one.ServiceProvider)
	assert.Equal(t, int64(4), one.RequestID)
}

type scriptedRequester struct {
	sent    []dto.Envelope
	replies []dto.Reply
	err     error
}

func (s *scriptedRequester) Do(_ context.Context, env dto.Envelope) (dto.Reply, error) {
	s.sent = append(s.sent, env)
	if s.err != nil {
		return dto.Reply{}, s.err
	}
	if len(s.replies) == 0 {
		return dto.Success(""), nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func TestPromptSession(t *testing.T) {
	req := &scriptedRequester{replies: []dto.Reply{
		{OK: false, Text: "invalid username or password"},
		dto.LoginSuccess("OK.", 1, "tok"),
		dto.Success("OK."),
		dto.Success("Haakon Doctorsen 2019-02-20-15"),
	}}
	input := strings.Join([]string{
		"User1", "bad",
		"User1", "pwd1",
		"4", "Haakon Doctorsen", "2019-2-20-15",
		"3",
		"4", "Haakon Doctorsen", "2019-02-31-15",
		"9",
		"q",
	}, "\n") + "\n"
	out := &bytes.Buffer{}

	require.NoError(t, NewPrompt(req, strings.NewReader(input), out).Run(context.Background()))

	require.Len(t, req.sent, 4)
	assert.Equal(t, dto.TypeLogin, req.sent[1].Type)
	assert.Equal(t, dto.TypeAddAppointmentToBasket, req.sent[2].Type)
	assert.Equal(t, int64(1), req.sent[2].ClientID)
	assert.Equal(t, "tok", req.sent[2].Token)
	assert.Equal(t, dto.TypeListBasket, req.sent[3].Type)

	text := out.String()
	assert.Contains(t, text, "Server response: ERROR.")
	assert.Contains(t, text, "Server response: OK.")
	assert.Contains(t, text, "Invalid time slot.")
	assert.Contains(t, text, "9 is not an available option.")
}

func TestPromptStopsOnTransportError(t *testing.T) {
	req := &scriptedRequester{err: errors.New("connection refused")}

	err := NewPrompt(req, strings.NewReader("User1\npwd1\n"), &bytes.Buffer{}).Run(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestClientDo(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	received := make(chan dto.Envelope, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tx := framing.NewTransceiver(conn, 0)
		raw, err := tx.Receive()
		if err != nil {
			return
		}
		var env dto.Envelope
		if codec.Unmarshal(raw, &env) == nil {
			received <- env
		}
		reply, _ := dto.EncodeReply(dto.Success("OK."))
		_ = tx.Send(reply)
	}()

	c := New(Config{Addr: listener.Addr().String(), Timeout: 2 * time.Second})
	reply, err := c.Do(context.Background(), NewRequestBuilder().ConfirmBooking())
	require.NoError(t, err)
	assert.True(t, reply.OK)

	env := <-received
	assert.Equal(t, dto.ProtocolVersion, env.Version)
	assert.Equal(t, dto.TypeConfirmBooking, env.Type)
}

func TestClientDoConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	_, err = New(Config{Addr: addr, Timeout: time.Second}).Do(context.Background(), NewRequestBuilder().ListBasket())
	assert.Error(t, err)
}
