package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/dto"
	"github.com/noah-isme/slot-booking/internal/models"
	"github.com/noah-isme/slot-booking/internal/service"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
	"github.com/noah-isme/slot-booking/pkg/middleware/requestid"
)

// OKText is the reply text of every successful mutation.
const OKText = "OK."

type authenticator interface {
	Login(ctx context.Context, username, password, callerAddress string) (*models.LoginResult, error)
	Authorize(ctx context.Context, clientID int64, callerAddress, token string) error
}

type inventory interface {
	AddToBasket(ctx context.Context, clientID int64, appt models.Appointment) error
	RemoveFromBasket(ctx context.Context, clientID int64, appt models.Appointment) error
	ConfirmBooking(ctx context.Context, clientID int64) ([]models.Appointment, error)
	CancelAppointment(ctx context.Context, clientID int64, appt models.Appointment) error
	ListBasket(clientID int64) []models.Appointment
	ListBooked(clientID int64) []models.Appointment
	ListAvailable(provider *string) ([]models.Appointment, error)
}

type requestMetrics interface {
	ObserveRequest(requestType, outcome string, duration time.Duration)
}

// Router turns one raw request into one raw reply. It authorizes the caller,
// dispatches on the request variant and contains every failure.
type Router struct {
	decoder   *dto.Decoder
	auth      authenticator
	inventory inventory
	metrics   requestMetrics
	logger    *zap.Logger
}

// NewRouter constructs a Router. metrics may be nil.
func NewRouter(decoder *dto.Decoder, auth authenticator, inv inventory, metrics requestMetrics, logger *zap.Logger) *Router {
	if decoder == nil {
		decoder = dto.NewDecoder(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{decoder: decoder, auth: auth, inventory: inv, metrics: metrics, logger: logger}
}

// Handle processes raw and returns the encoded reply. It never panics and
// always returns a reply.
func (r *Router) Handle(ctx context.Context, raw []byte, callerAddress string) []byte {
	start := time.Now()
	requestType, clientID, reply := r.process(ctx, raw, callerAddress)

	outcome := service.OutcomeOK
	if !reply.OK {
		outcome = service.OutcomeRejected
		if reply.Code == appErrors.ErrInternal.Code {
			outcome = service.OutcomeError
		}
	}
	latency := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveRequest(string(requestType), outcome, latency)
	}

	fields := []zap.Field{
		zap.String("type", string(requestType)),
		zap.Int64("client_id", clientID),
		zap.String("remote", callerAddress),
		zap.String("outcome", outcome),
		zap.Duration("latency", latency),
	}
	if id := requestid.FromContext(ctx); id != "" {
		fields = append(fields, zap.String("conn_id", id))
	}
	if reply.Code != "" {
		fields = append(fields, zap.String("code", reply.Code))
	}
	if outcome == service.OutcomeError {
		r.logger.Error("socket_request", fields...)
	} else {
		r.logger.Info("socket_request", fields...)
	}

	out, err := dto.EncodeReply(reply)
	if err != nil {
		r.logger.Error("encode reply failed", zap.Error(err))
		out, _ = dto.EncodeReply(dto.Failure(appErrors.ErrInternal))
	}
	return out
}

func (r *Router) process(ctx context.Context, raw []byte, callerAddress string) (requestType dto.RequestType, clientID int64, reply dto.Reply) {
	clientID = dto.AnonymousClientID
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("request handler panicked", zap.Any("panic", rec), zap.String("type", string(requestType)))
			reply = dto.Failure(appErrors.Wrap(fmt.Errorf("panic: %v", rec), appErrors.ErrInternal.Code, appErrors.ErrInternal.Message))
		}
	}()

	req, err := r.decoder.Decode(raw)
	if err != nil {
		return "", clientID, dto.Failure(err)
	}
	requestType = req.Kind()
	clientID = req.Meta().ClientID

	reply, err = r.dispatch(ctx, req, callerAddress)
	if err != nil {
		return requestType, clientID, dto.Failure(err)
	}
	return requestType, clientID, reply
}

func (r *Router) dispatch(ctx context.Context, req dto.Request, callerAddress string) (dto.Reply, error) {
	if login, ok := req.(dto.LoginRequest); ok {
		result, err := r.auth.Login(ctx, login.Username, login.Password, callerAddress)
		if err != nil {
			return dto.Reply{}, err
		}
		return dto.LoginSuccess(OKText, result.ClientID, result.Token), nil
	}

	meta := req.Meta()
	if err := r.auth.Authorize(ctx, meta.ClientID, callerAddress, meta.Token); err != nil {
		return dto.Reply{}, err
	}

	switch req := req.(type) {
	case dto.ListBasketRequest:
		return listReply(r.inventory.ListBasket(meta.ClientID)), nil
	case dto.ListBookedRequest:
		return listReply(r.inventory.ListBooked(meta.ClientID)), nil
	case dto.ListAvailableRequest:
		available, err := r.inventory.ListAvailable(req.ServiceProvider)
		if err != nil {
			return dto.Reply{}, err
		}
		return listReply(available), nil
	case dto.AddToBasketRequest:
		return mutationReply(r.inventory.AddToBasket(ctx, meta.ClientID, req.Appointment))
	case dto.RemoveFromBasketRequest:
		return mutationReply(r.inventory.RemoveFromBasket(ctx, meta.ClientID, req.Appointment))
	case dto.ConfirmBookingRequest:
		_, err := r.inventory.ConfirmBooking(ctx, meta.ClientID)
		return mutationReply(err)
	case dto.CancelAppointmentRequest:
		return mutationReply(r.inventory.CancelAppointment(ctx, meta.ClientID, req.Appointment))
	default:
		return dto.Reply{}, appErrors.Clone(appErrors.ErrMalformedRequest, fmt.Sprintf("malformed request: unhandled request type %s", req.Kind()))
	}
}

func listReply(appointments []models.Appointment) dto.Reply {
	lines := make([]string, len(appointments))
	for i, a := range appointments {
		lines[i] = a.String()
	}
	return dto.Success(strings.Join(lines, "\n"))
}

func mutationReply(err error) (dto.Reply, error) {
	if err != nil {
		return dto.Reply{}, err
	}
	return dto.Success(OKText), nil
}
