// Package teams derives teams from partner links among eligible players.
package teams

import (
	"context"
	"log/slog"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
)

// Resolution is the outcome of partitioning players into teams
type Resolution struct {
	Teams []model.Team

	// Unpaired lists players with no partner at all under strict pairing.
	// They are left out of Teams; disqualifying them is up to the caller.
	Unpaired []model.PlayerID
}

// Resolve partitions the players whose status is in eligible into teams of
// one or two, in player order. A partner that is not eligible leaves the
// survivor as a solo team under either policy. Partner links must be
// symmetric to form a pair.
func Resolve(players []*model.Player, eligible []model.PlayerStatus, policy model.PairingPolicy) Resolution {
	byID := make(map[model.PlayerID]*model.Player, len(players))
	var ordered []*model.Player
	for _, p := range players {
		if storage.PlayerStatusMatches(p.Status, eligible) {
			byID[p.ID] = p
			ordered = append(ordered, p)
		}
	}

	res := Resolution{Teams: []model.Team{}}
	grouped := make(map[model.PlayerID]bool, len(ordered))
	for _, p := range ordered {
		if grouped[p.ID] {
			continue
		}
		grouped[p.ID] = true

		if !p.HasPartner() {
			if policy == model.PairingStrictPairs {
				res.Unpaired = append(res.Unpaired, p.ID)
				continue
			}
			res.Teams = append(res.Teams, model.Team{p.ID})
			continue
		}

		partner, ok := byID[p.TeamPartnerID]
		if ok && !grouped[partner.ID] && partner.TeamPartnerID == p.ID {
			grouped[partner.ID] = true
			res.Teams = append(res.Teams, model.Team{p.ID, partner.ID})
			continue
		}
		res.Teams = append(res.Teams, model.Team{p.ID})
	}
	return res
}

// TeamOf returns the player's team among the given players: the player and,
// if present in players, its partner
func TeamOf(player *model.Player, players map[model.PlayerID]*model.Player) []*model.Player {
	team := []*model.Player{player}
	if player.HasPartner() {
		if partner, ok := players[player.TeamPartnerID]; ok && partner.TeamPartnerID == player.ID {
			team = append(team, partner)
		}
	}
	return team
}

// CountLive returns how many teams still have a live member
func CountLive(players []*model.Player) int {
	return len(Resolve(players, model.LiveStatuses(), model.PairingSoloAllowed).Teams)
}

// Service resolves teams from stored players
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new team service
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// ResolveTeams partitions the game's players. Live statuses are used when
// eligible is empty; the game's own policy is used when policy is empty.
func (s *Service) ResolveTeams(
	ctx context.Context,
	gameID model.GameID,
	eligible []model.PlayerStatus,
	policy model.PairingPolicy,
) (Resolution, error) {
	game, err := s.storage.GetGame(ctx, gameID)
	if err != nil {
		return Resolution{}, err
	}
	return ResolveIn(ctx, s.storage, game, eligible, policy)
}

// ResolveIn resolves teams reading through gs, which may be an open write region
func ResolveIn(
	ctx context.Context,
	gs storage.GameStore,
	game *model.Game,
	eligible []model.PlayerStatus,
	policy model.PairingPolicy,
) (Resolution, error) {
	if len(eligible) == 0 {
		eligible = model.LiveStatuses()
	}
	if policy == "" {
		policy = game.Config.PairingPolicy
	}
	players, err := gs.ListPlayers(ctx, game.ID, eligible...)
	if err != nil {
		return Resolution{}, err
	}
	return Resolve(players, eligible, policy), nil
}
