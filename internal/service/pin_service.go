package service

import (
	"context"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
)

// PinService manages the 4-digit transaction PIN that authorizes
// withdrawals. PINs are stored as Argon2id hashes; accounts start with a
// well-known default PIN that must be replaced before it can authorize
// anything.
type PinService struct {
	pinRepo    ports.PaymentPinRepository
	hasher     ports.HashService
	defaultPin string
	logger     zerolog.Logger
}

// NewPinService creates a new PIN service.
func NewPinService(
	pinRepo ports.PaymentPinRepository,
	hasher ports.HashService,
	defaultPin string,
	logger zerolog.Logger,
) *PinService {
	return &PinService{
		pinRepo:    pinRepo,
		hasher:     hasher,
		defaultPin: defaultPin,
		logger:     logger.With().Str("component", "pin_service").Logger(),
	}
}

// SetPin hashes and stores the user's PIN, replacing any existing one.
// Setting the well-known default keeps the account in the default state.
func (s *PinService) SetPin(ctx context.Context, userID uuid.UUID, pin string) error {
	if !isValidPin(pin) {
		return apperror.Validation("PIN must be exactly 4 digits")
	}

	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return apperror.InternalError(err)
	}

	now := time.Now().UTC()
	record := &domain.PaymentPin{
		ID:        uuid.New(),
		UserID:    userID,
		PinHash:   hash,
		IsDefault: pin == s.defaultPin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.pinRepo.Upsert(ctx, record); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", userID.String()).Bool("is_default", record.IsDefault).Msg("payment pin updated")
	return nil
}

// VerifyPin authorizes a sensitive operation with the user's PIN. A missing
// PIN record or one still holding the default PIN cannot authorize
// anything, regardless of whether the supplied PIN matches.
func (s *PinService) VerifyPin(ctx context.Context, userID uuid.UUID, pin string) error {
	record, err := s.configuredPin(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(pin, record.PinHash)
	if err != nil {
		return apperror.InternalError(err)
	}
	if !ok {
		return apperror.ErrInvalidPin()
	}
	return nil
}

// RequireConfigured fails unless the user has replaced the default PIN. It
// lets callers pre-check withdrawal eligibility without a submitted PIN.
func (s *PinService) RequireConfigured(ctx context.Context, userID uuid.UUID) error {
	_, err := s.configuredPin(ctx, userID)
	return err
}

// HasCustomPin reports whether the user has replaced the default PIN.
func (s *PinService) HasCustomPin(ctx context.Context, userID uuid.UUID) (bool, error) {
	record, err := s.pinRepo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return record != nil && !record.IsDefault, nil
}

func (s *PinService) configuredPin(ctx context.Context, userID uuid.UUID) (*domain.PaymentPin, error) {
	record, err := s.pinRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperror.ErrPinNotConfigured()
	}
	if record.IsDefault {
		return nil, apperror.ErrDefaultPin()
	}
	return record, nil
}

func isValidPin(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
