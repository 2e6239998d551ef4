package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slot-booking/internal/models"
)

type stubSeedSource struct {
	users        []models.User
	providers    []models.ProviderSlots
	usersErr     error
	providersErr error
}

func (s stubSeedSource) Users(context.Context) ([]models.User, error) {
	return s.users, s.usersErr
}

func (s stubSeedSource) Providers(context.Context) ([]models.ProviderSlots, error) {
	return s.providers, s.providersErr
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed(context.Background(), stubSeedSource{users: seedUsers(), providers: seedProviders()}, nil)
	require.NoError(t, err)
	assert.Len(t, seed.Users, 2)
	assert.Len(t, seed.Providers, 2)
}

func TestLoadSeedPropagatesErrors(t *testing.T) {
	_, err := LoadSeed(context.Background(), stubSeedSource{usersErr: errors.New("broken users")}, nil)
	assert.ErrorContains(t, err, "broken users")

	_, err = LoadSeed(context.Background(), stubSeedSource{providersErr: errors.New("broken providers")}, nil)
	assert.ErrorContains(t, err, "broken providers")
}
