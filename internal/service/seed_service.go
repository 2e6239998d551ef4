package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/models"
)

// SeedSource supplies the accounts and provider slots loaded at startup.
type SeedSource interface {
	Users(ctx context.Context) ([]models.User, error)
	Providers(ctx context.Context) ([]models.ProviderSlots, error)
}

// Seed is the startup state of the server.
type Seed struct {
	Users     []models.User
	Providers []models.ProviderSlots
}

// LoadSeed reads users and providers from src.
func LoadSeed(ctx context.Context, src SeedSource, logger *zap.Logger) (*Seed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	users, err := src.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seed users: %w", err)
	}
	providers, err := src.Providers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seed providers: %w", err)
	}

	slots := 0
	for _, p := range providers {
		slots += len(p.Slots)
	}
	logger.Info("seed loaded", zap.Int("users", len(users)), zap.Int("providers", len(providers)), zap.Int("slots", slots))
	return &Seed{Users: users, Providers: providers}, nil
}
