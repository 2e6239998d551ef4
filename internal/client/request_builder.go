package client

import (
	"sync"

	"github.com/noah-isme/slot-booking/internal/dto"
	"github.com/noah-isme/slot-booking/internal/models"
)

// RequestBuilder stamps envelopes with the client's identity and a request
// id that increases by one per request.
type RequestBuilder struct {
	mu        sync.Mutex
	clientID  int64
	token     string
	requestID int64
}

// NewRequestBuilder starts anonymous with request ids from 1.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{clientID: dto.AnonymousClientID}
}

// SetSession records the identity returned by a successful login.
func (b *RequestBuilder) SetSession(clientID int64, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clientID = clientID
	b.token = token
}

// ClientID returns the current identity.
func (b *RequestBuilder) ClientID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clientID
}

func (b *RequestBuilder) next(t dto.RequestType) dto.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requestID++
	return dto.Envelope{
		Version:   dto.ProtocolVersion,
		ClientID:  b.clientID,
		RequestID: b.requestID,
		Type:      t,
		Token:     b.token,
	}
}

func (b *RequestBuilder) Login(username, password string) dto.Envelope {
	env := b.next(dto.TypeLogin)
	env.Username = username
	env.Password = password
	return env
}

func (b *RequestBuilder) ListBasket() dto.Envelope {
	return b.next(dto.TypeListBasket)
}

func (b *RequestBuilder) ListBookedAppointments() dto.Envelope {
	return b.next(dto.TypeListBookedAppointments)
}

// ListAvailableAppointments filters by provider unless provider is empty.
func (b *RequestBuilder) ListAvailableAppointments(provider string) dto.Envelope {
	env := b.next(dto.TypeListAvailableAppointments)
	if provider != "" {
		env.ServiceProvider = &provider
	}
	return env
}

func (b *RequestBuilder) AddAppointmentToBasket(appt models.Appointment) dto.Envelope {
	env := b.next(dto.TypeAddAppointmentToBasket)
	env.Appointment = dto.AppointmentToPayload(appt)
	return env
}

func (b *RequestBuilder) RemoveAppointmentFromBasket(appt models.Appointment) dto.Envelope {
	env := b.next(dto.TypeRemoveAppointmentFromBasket)
	env.Appointment = dto.AppointmentToPayload(appt)
	return env
}

func (b *RequestBuilder) ConfirmBooking() dto.Envelope {
	return b.next(dto.TypeConfirmBooking)
}

func (b *RequestBuilder) CancelAppointment(appt models.Appointment) dto.Envelope {
	env := b.next(dto.TypeCancelAppointment)
	env.Appointment = dto.AppointmentToPayload(appt)
	return env
}
