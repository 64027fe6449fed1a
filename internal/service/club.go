package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/authz"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/validate"
)

// ClubService manages student clubs.
type ClubService struct {
	store repository.Store
	log   *zerolog.Logger
	now   Clock
}

// NewClubService constructs a ClubService.
func NewClubService(store repository.Store, log *zerolog.Logger, now Clock) *ClubService {
	return &ClubService{store: store, log: log, now: clockOrNow(now)}
}

// CreateClub registers a new active club. Officers must be existing users.
func (s *ClubService) CreateClub(ctx context.Context, actor model.Actor, req model.CreateClubRequest) (*model.Club, error) {
	if !authz.CanManageClubs(actor) {
		return nil, apperr.Unauthorized("only administrators may create clubs")
	}
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}

	c := model.Club{
		ID:                   uuid.New().String(),
		Name:                 strings.TrimSpace(req.Name),
		Description:          strings.TrimSpace(req.Description),
		Status:               model.ClubActive,
		PresidentID:          strings.TrimSpace(req.PresidentID),
		VicePresidentID:      strings.TrimSpace(req.VicePresidentID),
		FacultyCoordinatorID: strings.TrimSpace(req.FacultyCoordinatorID),
		CreatedAt:            s.now().UTC(),
	}
	if err := s.checkOfficers(ctx, &c); err != nil {
		return nil, err
	}

	if err := s.store.CreateClub(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Duplicate("a club named %q already exists", c.Name)
		}
		return nil, fmt.Errorf("create club: %w", err)
	}
	s.log.Info().Str("club_id", c.ID).Str("name", c.Name).Msg("club created")
	return &c, nil
}

// UpdateClub replaces a club's name, description and officers. The club's
// status is changed through SetStatus only.
func (s *ClubService) UpdateClub(ctx context.Context, actor model.Actor, id string, req model.UpdateClubRequest) (*model.Club, error) {
	if !authz.CanManageClubs(actor) {
		return nil, apperr.Unauthorized("only administrators may update clubs")
	}
	if err := requireID("club", id); err != nil {
		return nil, err
	}
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	c, err := s.store.GetClub(ctx, id)
	if err != nil {
		return nil, notFound(err, "club", id)
	}

	c.Name = strings.TrimSpace(req.Name)
	c.Description = strings.TrimSpace(req.Description)
	c.PresidentID = strings.TrimSpace(req.PresidentID)
	c.VicePresidentID = strings.TrimSpace(req.VicePresidentID)
	c.FacultyCoordinatorID = strings.TrimSpace(req.FacultyCoordinatorID)
	if err := s.checkOfficers(ctx, c); err != nil {
		return nil, err
	}

	if err := s.store.UpdateClub(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Duplicate("a club named %q already exists", c.Name)
		}
		return nil, notFound(err, "club", id)
	}
	s.log.Info().
		Str("club_id", c.ID).
		Str("president_id", c.PresidentID).
		Str("vice_president_id", c.VicePresidentID).
		Str("faculty_coordinator_id", c.FacultyCoordinatorID).
		Msg("club updated")
	return c, nil
}

// checkOfficers requires every named officer to be an existing user.
func (s *ClubService) checkOfficers(ctx context.Context, c *model.Club) error {
	for _, id := range []string{c.PresidentID, c.VicePresidentID, c.FacultyCoordinatorID} {
		if id == "" {
			continue
		}
		if _, err := s.store.GetUser(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Validation("officer %s is not a known user", id)
			}
			return fmt.Errorf("get user: %w", err)
		}
	}
	return nil
}

// GetClub returns a single club by ID.
func (s *ClubService) GetClub(ctx context.Context, id string) (*model.Club, error) {
	if err := requireID("club", id); err != nil {
		return nil, err
	}
	c, err := s.store.GetClub(ctx, id)
	if err != nil {
		return nil, notFound(err, "club", id)
	}
	return c, nil
}

// ListClubs returns all clubs.
func (s *ClubService) ListClubs(ctx context.Context) ([]model.Club, error) {
	return s.store.ListClubs(ctx)
}

// SetStatus activates or deactivates a club.
func (s *ClubService) SetStatus(ctx context.Context, actor model.Actor, id string, req model.ClubStatusRequest) (*model.Club, error) {
	if !authz.CanManageClubs(actor) {
		return nil, apperr.Unauthorized("only administrators may change club status")
	}
	if err := requireID("club", id); err != nil {
		return nil, err
	}
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	if err := s.store.SetClubStatus(ctx, id, req.Status); err != nil {
		return nil, notFound(err, "club", id)
	}
	s.log.Info().Str("club_id", id).Str("status", string(req.Status)).Msg("club status changed")
	return s.GetClub(ctx, id)
}
