package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/slot-booking/internal/dto"
	"github.com/noah-isme/slot-booking/internal/models"
)

const menu = `Please choose an option:
    1 - list my booked appointments
    2 - list available appointments
    3 - list basket
    4 - add appointment to basket
    5 - remove appointment from basket
    6 - confirm booking
    7 - cancel appointment
    q - quit
`

type requester interface {
	Do(ctx context.Context, env dto.Envelope) (dto.Reply, error)
}

// Prompt is the interactive terminal front end.
type Prompt struct {
	client  requester
	builder *RequestBuilder
	in      *bufio.Scanner
	out     io.Writer
	tasks   map[string]func(ctx context.Context) error
}

// NewPrompt wires a prompt reading from in and writing to out.
func NewPrompt(c requester, in io.Reader, out io.Writer) *Prompt {
	p := &Prompt{client: c, builder: NewRequestBuilder(), in: bufio.NewScanner(in), out: out}
	p.tasks = map[string]func(ctx context.Context) error{
		"1": p.listBooked,
		"2": p.listAvailable,
		"3": p.listBasket,
		"4": p.withAppointment(p.builder.AddAppointmentToBasket),
		"5": p.withAppointment(p.builder.RemoveAppointmentFromBasket),
		"6": p.confirm,
		"7": p.withAppointment(p.builder.CancelAppointment),
	}
	return p
}

// Run logs in and then serves the menu until the user quits or input ends.
func (p *Prompt) Run(ctx context.Context) error {
	ok, err := p.login(ctx)
	if err != nil || !ok {
		return err
	}

	for {
		choice, ok := p.ask(menu)
		if !ok {
			return nil
		}
		choice = strings.TrimSpace(choice)
		if choice == "q" {
			return nil
		}
		task, exists := p.tasks[choice]
		if !exists {
			fmt.Fprintf(p.out, "%s is not an available option.\n", choice)
			continue
		}
		if err := task(ctx); err != nil {
			fmt.Fprintf(p.out, "Request failed: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (p *Prompt) login(ctx context.Context) (bool, error) {
	for {
		username, ok := p.ask("Username: ")
		if !ok {
			return false, nil
		}
		password, ok := p.ask("Password: ")
		if !ok {
			return false, nil
		}

		reply, err := p.client.Do(ctx, p.builder.Login(strings.TrimSpace(username), password))
		if err != nil {
			return false, err
		}
		p.print(reply)
		if reply.OK && reply.ClientID != nil {
			p.builder.SetSession(*reply.ClientID, reply.Token)
			return true, nil
		}
	}
}

func (p *Prompt) listBooked(ctx context.Context) error {
	return p.send(ctx, p.builder.ListBookedAppointments())
}

func (p *Prompt) listAvailable(ctx context.Context) error {
	provider, ok := p.ask("Please enter a provider's name or leave empty to list all of them: ")
	if !ok {
		return nil
	}
	return p.send(ctx, p.builder.ListAvailableAppointments(strings.TrimSpace(provider)))
}

func (p *Prompt) listBasket(ctx context.Context) error {
	return p.send(ctx, p.builder.ListBasket())
}

func (p *Prompt) confirm(ctx context.Context) error {
	return p.send(ctx, p.builder.ConfirmBooking())
}

func (p *Prompt) withAppointment(build func(models.Appointment) dto.Envelope) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		appt, ok := p.askAppointment()
		if !ok {
			return nil
		}
		return p.send(ctx, build(appt))
	}
}

func (p *Prompt) askAppointment() (models.Appointment, bool) {
	provider, ok := p.ask("Please enter a provider's name: ")
	if !ok {
		return models.Appointment{}, false
	}
	rawSlot, ok := p.ask("Please choose a time slot (yyyy-mm-dd-hh): ")
	if !ok {
		return models.Appointment{}, false
	}
	slot, err := models.ParseTimeSlot(rawSlot)
	if err != nil {
		fmt.Fprintln(p.out, "Invalid time slot.")
		return models.Appointment{}, false
	}
	return models.Appointment{Provider: models.ServiceProvider{Name: strings.TrimSpace(provider)}, Slot: slot}, true
}

func (p *Prompt) send(ctx context.Context, env dto.Envelope) error {
	reply, err := p.client.Do(ctx, env)
	if err != nil {
		return err
	}
	p.print(reply)
	return nil
}

func (p *Prompt) print(reply dto.Reply) {
	if reply.OK {
		fmt.Fprintln(p.out, "Server response: OK.")
	} else {
		fmt.Fprintln(p.out, "Server response: ERROR.")
	}
	fmt.Fprint(p.out, reply.Text+"\n\n")
}

func (p *Prompt) ask(question string) (string, bool) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		return "", false
	}
	return p.in.Text(), true
}
