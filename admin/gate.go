// Package admin implements the PIN-gated statistics panel.
package admin

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/service"
	"github.com/krishkalaria12/cropcare/session"
	"github.com/krishkalaria12/cropcare/ttlstore"
)

const (
	PINLength = 4
	flagKey   = "admin:unlocked:"
)

var (
	ErrInvalidPIN = apperr.New(http.StatusForbidden, "Invalid PIN. Please try again.", nil)
	ErrPINFormat  = apperr.BadRequest("Enter 4-digit PIN")
	ErrLocked     = apperr.New(http.StatusForbidden, "Admin access required", nil)
)

type StatsCollector interface {
	Collect(ctx context.Context) (*service.Stats, error)
}

type Gate struct {
	pin     string
	flags   ttlstore.Store
	flagTTL time.Duration
	stats   StatsCollector
	log     *logger.Logger
}

// NewGate returns a gate that compares against pin. An empty pin rejects every attempt.
// An unlock lasts flagTTL unless the user locks the panel or signs out first.
func NewGate(pin string, flags ttlstore.Store, flagTTL time.Duration, stats StatsCollector, log *logger.Logger) *Gate {
	return &Gate{
		pin:     pin,
		flags:   flags,
		flagTTL: flagTTL,
		stats:   stats,
		log:     log.With("service", "AdminGate"),
	}
}

func (g *Gate) Unlock(ctx context.Context, userID uuid.UUID, pin string) error {
	if utf8.RuneCountInString(pin) != PINLength {
		return ErrPINFormat
	}
	if g.pin == "" || subtle.ConstantTimeCompare([]byte(pin), []byte(g.pin)) != 1 {
		g.log.Warn("Rejected admin PIN", "user_id", userID, "gate_configured", g.pin != "")
		return ErrInvalidPIN
	}
	if err := g.flags.Set(ctx, flagKey+userID.String(), g.flagTTL); err != nil {
		return apperr.New(http.StatusInternalServerError, "Failed to unlock admin panel", err)
	}
	g.log.Info("Admin panel unlocked", "user_id", userID)
	return nil
}

func (g *Gate) Lock(ctx context.Context, userID uuid.UUID) error {
	return g.flags.Delete(ctx, flagKey+userID.String())
}

func (g *Gate) IsUnlocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	return g.flags.Has(ctx, flagKey+userID.String())
}

func (g *Gate) Stats(ctx context.Context, userID uuid.UUID) (*service.Stats, error) {
	ok, err := g.IsUnlocked(ctx, userID)
	if err != nil {
		return nil, apperr.New(http.StatusInternalServerError, "Error loading statistics", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return g.stats.Collect(ctx)
}

// Watch clears a user's unlock when they sign out.
func (g *Gate) Watch(p *session.Provider) (unsubscribe func()) {
	return p.Subscribe(func(e session.Event) {
		if e.Kind != session.SignedOut {
			return
		}
		if err := g.Lock(context.Background(), e.Identity.UserID); err != nil {
			g.log.Warn("Failed to clear admin unlock on sign-out", "user_id", e.Identity.UserID, "error", err)
		}
	})
}
