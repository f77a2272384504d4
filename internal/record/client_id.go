package record

import (
	"context"

	"github.com/google/uuid"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// ClientID returns the persisted client identifier, generating and storing a
// new UUID on first use.
func ClientID(ctx context.Context, s *Store) (string, error) {
	if id := Read(ctx, s, domain.KeyClientID, func() string { return "" }); id != "" {
		return id, nil
	}
	id := uuid.NewString()
	if err := s.Write(ctx, domain.KeyClientID, id); err != nil {
		return "", err
	}
	return id, nil
}
