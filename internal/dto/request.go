package dto

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/slot-booking/internal/models"
	"github.com/noah-isme/slot-booking/pkg/codec"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

// ProtocolVersion is stamped on every envelope.
const ProtocolVersion = 1

// AnonymousClientID is carried by requests sent before login.
const AnonymousClientID int64 = -1

// RequestType tags the variant carried by an envelope.
type RequestType string

const (
	TypeLogin                       RequestType = "LOGIN"
	TypeListBasket                  RequestType = "LIST_BASKET"
	TypeListBookedAppointments      RequestType = "LIST_BOOKED_APPOINTMENTS"
	TypeListAvailableAppointments   RequestType = "LIST_AVAILABLE_APPOINTMENTS"
	TypeAddAppointmentToBasket      RequestType = "ADD_APPOINTMENT_TO_BASKET"
	TypeRemoveAppointmentFromBasket RequestType = "REMOVE_APPOINTMENT_FROM_BASKET"
	TypeConfirmBooking              RequestType = "CONFIRM_BOOKING"
	TypeCancelAppointment           RequestType = "CANCEL_APPOINTMENT"
)

// TimeSlotPayload is the wire form of a time slot.
type TimeSlotPayload struct {
	Year  int `cbor:"year" validate:"gte=0"`
	Month int `cbor:"month" validate:"gte=1,lte=12"`
	Day   int `cbor:"day" validate:"gte=1,lte=31"`
	Hour  int `cbor:"hour" validate:"gte=0,lte=24"`
}

// AppointmentPayload is the wire form of an appointment.
type AppointmentPayload struct {
	ServiceProvider string          `cbor:"service_provider" validate:"required"`
	TimeSlot        TimeSlotPayload `cbor:"time_slot"`
}

// Envelope is the versioned wire schema shared by every request type. Only
// the fields belonging to Type are read.
type Envelope struct {
	Version         int                 `cbor:"v"`
	ClientID        int64               `cbor:"client_id"`
	RequestID       int64               `cbor:"request_id"`
	Type            RequestType         `cbor:"type"`
	Token           string              `cbor:"token,omitempty"`
	Username        string              `cbor:"username,omitempty"`
	Password        string              `cbor:"password,omitempty"`
	ServiceProvider *string             `cbor:"service_provider,omitempty"`
	Appointment     *AppointmentPayload `cbor:"appointment,omitempty"`
}

// Header carries the fields common to every request.
type Header struct {
	ClientID  int64
	RequestID int64
	Token     string
}

// Request is the closed set of request variants. Only types in this package
// implement it.
type Request interface {
	Meta() Header
	Kind() RequestType
	isRequest()
}

type LoginRequest struct {
	Header
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type ListBasketRequest struct{ Header }

type ListBookedRequest struct{ Header }

// ListAvailableRequest filters by provider when ServiceProvider is non-nil.
type ListAvailableRequest struct {
	Header
	ServiceProvider *string
}

type AddToBasketRequest struct {
	Header
	Appointment models.Appointment
}

type RemoveFromBasketRequest struct {
	Header
	Appointment models.Appointment
}

type ConfirmBookingRequest struct{ Header }

type CancelAppointmentRequest struct {
	Header
	Appointment models.Appointment
}

func (h Header) Meta() Header { return h }

func (LoginRequest) Kind() RequestType             { return TypeLogin }
func (ListBasketRequest) Kind() RequestType        { return TypeListBasket }
func (ListBookedRequest) Kind() RequestType        { return TypeListBookedAppointments }
func (ListAvailableRequest) Kind() RequestType     { return TypeListAvailableAppointments }
func (AddToBasketRequest) Kind() RequestType       { return TypeAddAppointmentToBasket }
func (RemoveFromBasketRequest) Kind() RequestType  { return TypeRemoveAppointmentFromBasket }
func (ConfirmBookingRequest) Kind() RequestType    { return TypeConfirmBooking }
func (CancelAppointmentRequest) Kind() RequestType { return TypeCancelAppointment }

func (LoginRequest) isRequest()             {}
func (ListBasketRequest) isRequest()        {}
func (ListBookedRequest) isRequest()        {}
func (ListAvailableRequest) isRequest()     {}
func (AddToBasketRequest) isRequest()       {}
func (RemoveFromBasketRequest) isRequest()  {}
func (ConfirmBookingRequest) isRequest()    {}
func (CancelAppointmentRequest) isRequest() {}

// Decoder turns raw envelopes into request variants.
type Decoder struct {
	validator *validator.Validate
}

// NewDecoder builds a decoder. A nil validator gets a default instance.
func NewDecoder(validate *validator.Validate) *Decoder {
	if validate == nil {
		validate = validator.New()
	}
	return &Decoder{validator: validate}
}

// Decode parses raw CBOR into a request variant. Every failure is a
// MALFORMED_REQUEST error.
func (d *Decoder) Decode(raw []byte) (Request, error) {
	var env Envelope
	if err := codec.Unmarshal(raw, &env); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedRequest.Code, "malformed request: cannot decode envelope")
	}
	return d.FromEnvelope(env)
}

// FromEnvelope converts a decoded envelope into its request variant.
func (d *Decoder) FromEnvelope(env Envelope) (Request, error) {
	if env.Version != ProtocolVersion {
		return nil, malformed(fmt.Sprintf("unsupported protocol version %d", env.Version))
	}

	header := Header{ClientID: env.ClientID, RequestID: env.RequestID, Token: env.Token}

	switch env.Type {
	case TypeLogin:
		req := LoginRequest{Header: header, Username: env.Username, Password: env.Password}
		if err := d.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrMalformedRequest.Code, "malformed request: username and password are required")
		}
		return req, nil
	case TypeListBasket:
		return ListBasketRequest{Header: header}, nil
	case TypeListBookedAppointments:
		return ListBookedRequest{Header: header}, nil
	case TypeListAvailableAppointments:
		provider := env.ServiceProvider
		if provider != nil && *provider == "" {
			provider = nil
		}
		return ListAvailableRequest{Header: header, ServiceProvider: provider}, nil
	case TypeAddAppointmentToBasket:
		appt, err := d.appointment(env)
		if err != nil {
			return nil, err
		}
		return AddToBasketRequest{Header: header, Appointment: appt}, nil
	case TypeRemoveAppointmentFromBasket:
		appt, err := d.appointment(env)
		if err != nil {
			return nil, err
		}
		return RemoveFromBasketRequest{Header: header, Appointment: appt}, nil
	case TypeConfirmBooking:
		return ConfirmBookingRequest{Header: header}, nil
	case TypeCancelAppointment:
		appt, err := d.appointment(env)
		if err != nil {
			return nil, err
		}
		return CancelAppointmentRequest{Header: header, Appointment: appt}, nil
	case "":
		return nil, malformed("missing request type")
	default:
		return nil, malformed(fmt.Sprintf("unknown request type %q", env.Type))
	}
}

func (d *Decoder) appointment(env Envelope) (models.Appointment, error) {
	if env.Appointment == nil {
		return models.Appointment{}, malformed("missing appointment")
	}
	if err := d.validator.Struct(env.Appointment); err != nil {
		return models.Appointment{}, appErrors.Wrap(err, appErrors.ErrMalformedRequest.Code, "malformed request: invalid appointment")
	}
	ts := env.Appointment.TimeSlot
	slot, err := models.NewTimeSlot(ts.Year, ts.Month, ts.Day, ts.Hour)
	if err != nil {
		return models.Appointment{}, appErrors.Wrap(err, appErrors.ErrMalformedRequest.Code, "malformed request: "+err.Error())
	}
	return models.Appointment{
		Provider: models.ServiceProvider{Name: env.Appointment.ServiceProvider},
		Slot:     slot,
	}, nil
}

// AppointmentToPayload converts a model appointment to its wire form.
func AppointmentToPayload(a models.Appointment) *AppointmentPayload {
	return &AppointmentPayload{
		ServiceProvider: a.Provider.Name,
		TimeSlot: TimeSlotPayload{
			Year:  a.Slot.Year,
			Month: a.Slot.Month,
			Day:   a.Slot.Day,
			Hour:  a.Slot.Hour,
		},
	}
}

func malformed(message string) error {
	return appErrors.Clone(appErrors.ErrMalformedRequest, "malformed request: "+message)
}
