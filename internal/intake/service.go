// Package intake is the caller-facing surface of the expense intake service:
// it feeds receipt images, expense sentences and shopping lists through the
// extraction pipeline and serves the results over HTTP.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/expense-intake/internal/extraction"
	"github.com/zombor/expense-intake/internal/household"
	"github.com/zombor/expense-intake/internal/scanning"
)

var (
	ErrEmptyImage         = errors.New("image is empty")
	ErrHouseholdRequired  = errors.New("household id is required")
	ErrMemberNameRequired = errors.New("member name is required")

	// ErrRecognitionFailed wraps any failure of the text recognizer
	ErrRecognitionFailed = errors.New("text recognition failed")
)

// IDGenerator generates unique IDs for household members
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Service handles intake operations
type Service struct {
	pipeline    *extraction.Pipeline
	recognizer  scanning.Recognizer
	roster      household.Roster
	idGenerator IDGenerator
	logger      *slog.Logger
}

// NewService creates a Service with the default pipeline and ID generator
func NewService(recognizer scanning.Recognizer, roster household.Roster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	pipeline := extraction.NewPipelineWithDeps(nil, logger)
	return NewServiceWithDeps(pipeline, recognizer, roster, &uuidGenerator{}, logger)
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(pipeline *extraction.Pipeline, recognizer scanning.Recognizer, roster household.Roster, idGen IDGenerator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pipeline:    pipeline,
		recognizer:  recognizer,
		roster:      roster,
		idGenerator: idGen,
		logger:      logger,
	}
}

// ExtractReceipt recognizes the text of a receipt image and extracts its
// fields. Only recognition can fail; unreadable text yields empty fields.
func (s *Service) ExtractReceipt(ctx context.Context, data []byte, contentType string) (extraction.ReceiptData, error) {
	if len(data) == 0 {
		return extraction.ReceiptData{}, ErrEmptyImage
	}

	text, err := s.recognizer.RecognizeText(ctx, data, contentType)
	if err != nil {
		s.logger.Error("Failed to recognize receipt",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return extraction.ReceiptData{}, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}

	return s.pipeline.ExtractReceipt(text), nil
}

// ExtractReceiptText extracts receipt fields from text that was recognized
// elsewhere.
func (s *Service) ExtractReceiptText(text string) extraction.ReceiptData {
	return s.pipeline.ExtractReceipt(text)
}

// ParseExpense parses an expense sentence against the members of householdID
// plus any inline members. Either source may be empty.
func (s *Service) ParseExpense(text, householdID string, inline []extraction.Member) (extraction.ParsedExpense, error) {
	members, err := s.knownMembers(householdID, inline)
	if err != nil {
		return extraction.ParsedExpense{}, err
	}

	return s.pipeline.ParseExpenseSentence(text, members), nil
}

// knownMembers merges the stored roster with inline members. A stored member
// keeps its position; an inline member with the same ID replaces its name.
// Inline members without an ID are given a fresh one.
func (s *Service) knownMembers(householdID string, inline []extraction.Member) ([]extraction.Member, error) {
	var members []extraction.Member
	if householdID != "" {
		stored, err := s.roster.ListMembers(householdID)
		if err != nil {
			return nil, fmt.Errorf("listing members: %w", err)
		}
		members = stored
	}

	index := make(map[string]int, len(members))
	for i, m := range members {
		index[m.ID] = i
	}
	for _, m := range inline {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		if strings.TrimSpace(m.ID) == "" {
			m.ID = s.idGenerator.Generate()
		}
		if i, ok := index[m.ID]; ok {
			members[i].Name = m.Name
			continue
		}
		index[m.ID] = len(members)
		members = append(members, m)
	}
	return members, nil
}

// ParseShoppingList parses a typed or spoken shopping list
func (s *Service) ParseShoppingList(text string) []extraction.ParsedListItem {
	return s.pipeline.ParseShoppingList(text)
}

// AddMember adds a member to a household. An empty ID gets a generated one;
// an existing ID is renamed.
func (s *Service) AddMember(householdID, id, name string) (extraction.Member, error) {
	if strings.TrimSpace(householdID) == "" {
		return extraction.Member{}, ErrHouseholdRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return extraction.Member{}, ErrMemberNameRequired
	}
	if id == "" {
		id = s.idGenerator.Generate()
	}

	member := extraction.Member{ID: id, Name: name}
	if err := s.roster.SaveMember(householdID, member); err != nil {
		return extraction.Member{}, fmt.Errorf("saving member: %w", err)
	}
	s.logger.Info("Added household member", "household", householdID, "member", id)
	return member, nil
}

// ListMembers returns a household's members
func (s *Service) ListMembers(householdID string) ([]extraction.Member, error) {
	if strings.TrimSpace(householdID) == "" {
		return nil, ErrHouseholdRequired
	}
	members, err := s.roster.ListMembers(householdID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

// RemoveMember removes a member from a household
func (s *Service) RemoveMember(householdID, id string) error {
	if strings.TrimSpace(householdID) == "" {
		return ErrHouseholdRequired
	}
	if err := s.roster.DeleteMember(householdID, id); err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	s.logger.Info("Removed household member", "household", householdID, "member", id)
	return nil
}
