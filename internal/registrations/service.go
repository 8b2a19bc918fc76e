// Package registrations validates and creates slot registrations, gated by the
// availability engine inside the store's update transaction.
package registrations

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/internal/availability"
	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

// ErrNotFound means no registration exists with the given id.
var ErrNotFound = errors.New("registration not found")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError reports the first input field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Input is the data needed to create a registration.
type Input struct {
	Date           string `json:"date"`
	Slot           string `json:"slot"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	WWID           string `json:"wwid"`
	GamePreference string `json:"gamePreference"`
}

// Service creates, lists and removes registrations.
type Service struct {
	store  store.Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewService creates a registration service. clock may be nil (wall clock).
func NewService(s store.Store, clock func() time.Time, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, clock: clock, logger: logger}
}

func validate(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.WWID = strings.TrimSpace(in.WWID)
	in.GamePreference = strings.TrimSpace(in.GamePreference)
	in.Date = strings.TrimSpace(in.Date)
	in.Slot = strings.TrimSpace(in.Slot)

	switch {
	case len(in.Name) < 2:
		return &ValidationError{Field: "name", Reason: "at least 2 characters required"}
	case !emailPattern.MatchString(in.Email):
		return &ValidationError{Field: "email", Reason: "not a valid email address"}
	case len(in.WWID) < 3 || len(in.WWID) > 20:
		return &ValidationError{Field: "wwid", Reason: "must be 3-20 characters"}
	case in.GamePreference == "":
		return &ValidationError{Field: "gamePreference", Reason: "a preferred game is required"}
	case !workshop.ContainsDate(in.Date):
		return &ValidationError{Field: "date", Reason: "outside the workshop period"}
	case !workshop.ValidSlot(in.Slot):
		return &ValidationError{Field: "slot", Reason: "not a workshop time slot"}
	}
	return nil
}

// Register validates input, re-checks slot availability against the freshly
// read collection and appends the new record. Capacity and per-slot uniqueness
// are enforced inside the store update so a slot filled since the grid was
// rendered is caught here.
func (s *Service) Register(ctx context.Context, in Input) (models.Registration, error) {
	if err := validate(&in); err != nil {
		return models.Registration{}, err
	}

	reg := models.Registration{
		RegistrationID:   newRegistrationID(s.clock()),
		Date:             in.Date,
		Slot:             in.Slot,
		Name:             in.Name,
		Email:            in.Email,
		WWID:             in.WWID,
		GamePreference:   in.GamePreference,
		RegistrationTime: s.clock().UTC(),
	}

	err := s.store.UpdateRegistrations(ctx, func(regs []models.Registration) ([]models.Registration, error) {
		if err := availability.Check(regs, in.Email, in.WWID, in.Date, in.Slot); err != nil {
			return nil, err
		}
		return append(regs, reg), nil
	})
	if err != nil {
		return models.Registration{}, err
	}

	s.logger.Info("registration created",
		zap.String("registration_id", reg.RegistrationID),
		zap.String("slot_key", reg.SlotKey()),
		zap.String("wwid", reg.WWID),
	)
	return reg, nil
}

// Remove deletes a registration and cascade-deletes its session, if any.
func (s *Service) Remove(ctx context.Context, registrationID string) error {
	err := s.store.UpdateRegistrations(ctx, func(regs []models.Registration) ([]models.Registration, error) {
		kept := regs[:0]
		found := false
		for _, reg := range regs {
			if reg.RegistrationID == registrationID {
				found = true
				continue
			}
			kept = append(kept, reg)
		}
		if !found {
			return nil, ErrNotFound
		}
		return kept, nil
	})
	if err != nil {
		return err
	}

	err = s.store.UpdateSessions(ctx, func(sessions []models.Session) ([]models.Session, error) {
		kept := sessions[:0]
		for _, sess := range sessions {
			if sess.RegistrationID != registrationID {
				kept = append(kept, sess)
			}
		}
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("cascade session delete: %w", err)
	}

	s.logger.Info("registration removed", zap.String("registration_id", registrationID))
	return nil
}

// Get returns one registration by id.
func (s *Service) Get(ctx context.Context, registrationID string) (models.Registration, error) {
	regs, err := s.store.Registrations(ctx)
	if err != nil {
		return models.Registration{}, err
	}
	for _, reg := range regs {
		if reg.RegistrationID == registrationID {
			return reg, nil
		}
	}
	return models.Registration{}, ErrNotFound
}

// List returns all registrations.
func (s *Service) List(ctx context.Context) ([]models.Registration, error) {
	return s.store.Registrations(ctx)
}

// ListByIdentity returns registrations whose email or wwid matches term,
// case-insensitively. Used by the dashboard session search.
func (s *Service) ListByIdentity(ctx context.Context, term string) ([]models.Registration, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	regs, err := s.store.Registrations(ctx)
	if err != nil {
		return nil, err
	}
	var matched []models.Registration
	for _, reg := range regs {
		if strings.ToLower(reg.Email) == term || strings.ToLower(reg.WWID) == term {
			matched = append(matched, reg)
		}
	}
	return matched, nil
}

// newRegistrationID keeps the REG-<base36 millis>-<suffix> format the rest of
// the tooling expects to see on badges and exports.
func newRegistrationID(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 36)
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return strings.ToUpper("REG-" + millis + "-" + string(suffix))
}
