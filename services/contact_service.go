package services

import (
	"context"
	"strings"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/pkg/hebrew"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
)

// ContactService owns the address book and resolves a free-text name
// (as typed by the user, or extracted by the NLU layer) against the
// stored contact list and their aliases, per SPEC_FULL.md's
// contact-alias fuzzy resolution supplement.
type ContactService struct {
	repo *repository.ContactRepository
}

func NewContactService(repo *repository.ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) Create(ctx context.Context, userID, name string, phone *string, aliases []string) (*domain.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.InvalidArgumentError("contact name must not be empty")
	}
	c := &domain.Contact{UserID: userID, Name: name, Phone: phone, Aliases: aliases}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContactService) List(ctx context.Context, userID string) ([]*domain.Contact, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ContactService) GetByID(ctx context.Context, id, userID string) (*domain.Contact, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *ContactService) Update(ctx context.Context, c *domain.Contact) error {
	return s.repo.Update(ctx, c)
}

// Resolve fuzzy-matches freeText against every contact's name and
// aliases and applies the same threshold/lead-margin disambiguation
// rule the event-comment matcher uses. A contact matches if either
// its name or any alias scores above threshold; the contact's best
// candidate score is the max across all of its own names/aliases.
func (s *ContactService) Resolve(ctx context.Context, userID, freeText string, threshold float64) (*domain.Contact, []*domain.Contact, error) {
	contacts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(contacts) == 0 {
		return nil, nil, nil
	}

	type scored struct {
		contact *domain.Contact
		score   float64
	}
	best := make([]scored, len(contacts))
	for i, c := range contacts {
		top := hebrew.Score(freeText, c.Name)
		for _, alias := range c.Aliases {
			if sc := hebrew.Score(freeText, alias); sc > top {
				top = sc
			}
		}
		best[i] = scored{contact: c, score: top}
	}

	candidates := make([]scored, 0, len(best))
	for _, b := range best {
		if b.score >= threshold {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}
	if len(candidates) == 1 {
		return candidates[0].contact, nil, nil
	}

	top, second := candidates[0], scored{score: -1}
	for _, c := range candidates[1:] {
		if c.score > top.score {
			second = top
			top = c
		} else if c.score > second.score {
			second = c
		}
	}
	if top.score-second.score >= 0.15 {
		return top.contact, nil, nil
	}
	ambiguous := make([]*domain.Contact, len(candidates))
	for i, c := range candidates {
		ambiguous[i] = c.contact
	}
	return nil, ambiguous, nil
}
