package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/noah-isme/slot-booking/internal/models"
)

const fieldSeparator = ";"

// SeedFileRepository reads users and provider slots from the semicolon
// separated seed files.
type SeedFileRepository struct {
	usersPath     string
	providersPath string
}

// NewSeedFileRepository creates a new instance of SeedFileRepository.
func NewSeedFileRepository(usersPath, providersPath string) *SeedFileRepository {
	return &SeedFileRepository{usersPath: usersPath, providersPath: providersPath}
}

// Users parses `user_id;username;password` lines.
func (r *SeedFileRepository) Users(_ context.Context) ([]models.User, error) {
	var users []models.User
	err := scanLines(r.usersPath, func(lineNo int, line string) error {
		fields := strings.Split(line, fieldSeparator)
		if len(fields) != 3 {
			return fmt.Errorf("expected 3 fields, got %d", len(fields))
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", fields[0])
		}
		username := strings.TrimSpace(fields[1])
		if username == "" {
			return fmt.Errorf("empty username")
		}
		users = append(users, models.User{ID: id, Username: username, Password: strings.TrimSpace(fields[2])})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

// Providers parses `provider_name;slot1;slot2;...` lines. A provider appearing
// on more than one line keeps its first position and the slots of its last
// line.
func (r *SeedFileRepository) Providers(_ context.Context) ([]models.ProviderSlots, error) {
	set := newProviderSet()
	err := scanLines(r.providersPath, func(lineNo int, line string) error {
		fields := strings.Split(line, fieldSeparator)
		name := strings.TrimSpace(fields[0])
		if name == "" {
			return fmt.Errorf("empty service provider name")
		}

		slots := make([]models.TimeSlot, 0, len(fields)-1)
		for i, raw := range fields[1:] {
			if strings.TrimSpace(raw) == "" {
				return fmt.Errorf("empty time slot in field %d", i+2)
			}
			slot, err := models.ParseTimeSlot(raw)
			if err != nil {
				return err
			}
			slots = append(slots, slot)
		}
		set.replace(models.ServiceProvider{Name: name}, slots)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load service providers: %w", err)
	}
	return set.list(), nil
}

func scanLines(path string, fn func(lineNo int, line string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNo := 0
	for {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		if raw != "" {
			lineNo++
			if line := strings.TrimSpace(raw); line != "" {
				if err := fn(lineNo, line); err != nil {
					return fmt.Errorf("%s:%d: %w", path, lineNo, err)
				}
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

// providerSet accumulates provider slots in first-seen order with duplicate
// slots collapsed.
type providerSet struct {
	order []models.ServiceProvider
	slots map[models.ServiceProvider][]models.TimeSlot
}

func newProviderSet() *providerSet {
	return &providerSet{slots: make(map[models.ServiceProvider][]models.TimeSlot)}
}

func (s *providerSet) touch(provider models.ServiceProvider) {
	if _, ok := s.slots[provider]; !ok {
		s.order = append(s.order, provider)
		s.slots[provider] = nil
	}
}

func (s *providerSet) replace(provider models.ServiceProvider, slots []models.TimeSlot) {
	s.touch(provider)
	s.slots[provider] = nil
	for _, slot := range slots {
		s.add(provider, slot)
	}
}

func (s *providerSet) add(provider models.ServiceProvider, slot models.TimeSlot) {
	s.touch(provider)
	for _, existing := range s.slots[provider] {
		if existing == slot {
			return
		}
	}
	s.slots[provider] = append(s.slots[provider], slot)
}

func (s *providerSet) list() []models.ProviderSlots {
	out := make([]models.ProviderSlots, 0, len(s.order))
	for _, provider := range s.order {
		out = append(out, models.ProviderSlots{Provider: provider, Slots: s.slots[provider]})
	}
	return out
}
