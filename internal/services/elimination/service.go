// Package elimination resolves kill reports against the target graph.
package elimination

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/assassins-go/internal/dependencies/clock"
	"github.com/mcoot/assassins-go/internal/dependencies/idgen"
	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/registry"
	"github.com/mcoot/assassins-go/internal/services/retry"
	"github.com/mcoot/assassins-go/internal/services/teams"
	"github.com/mcoot/assassins-go/internal/storage"
)

// KillResult describes the graph changes made by one kill
type KillResult struct {
	AssignmentID   model.AssignmentID
	KillerID       model.PlayerID
	VictimID       model.PlayerID
	TeamEliminated bool
	GameComplete   bool

	// Expired lists edges retired as a consequence of the kill
	Expired []model.AssignmentID

	// NewAssignments are edges handed to the killer's team when the
	// victim's team was eliminated
	NewAssignments []*model.TargetAssignment
}

// Disqualification describes the graph changes made by removing a player
type Disqualification struct {
	Player         *model.Player
	TeamEliminated bool
	GameComplete   bool

	// Expired lists edges retired because the player left play
	Expired []model.AssignmentID

	// NewAssignments are edges handed to each team that was hunting the
	// disqualified team when it was eliminated
	NewAssignments []*model.TargetAssignment
}

// Service processes kills, disqualifications and safe toggles
type Service struct {
	storage  storage.Storage
	registry *registry.Service
	retrier  *retry.Retrier
	clock    clock.Clock
	ids      idgen.Generator
	logger   *slog.Logger
}

// New creates a new elimination service
func New(
	storage storage.Storage,
	registry *registry.Service,
	retrier *retry.Retrier,
	clock clock.Clock,
	ids idgen.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:  storage,
		registry: registry,
		retrier:  retrier,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// ReportKill records that the edge's hunter eliminated its target. All
// writes happen in one write region, retried on contention with state
// re-read each time. Reporting the same edge twice fails with
// ErrInvalidEdgeState.
//
// If the kill ends the game but the registry cannot be moved to complete,
// the committed result is returned together with the error.
func (s *Service) ReportKill(
	ctx context.Context,
	gameID model.GameID,
	reporterID model.UserID,
	assignmentID model.AssignmentID,
) (*KillResult, error) {
	result, err := retry.Value(ctx, s.retrier, "report_kill", func() (*KillResult, error) {
		game, err := s.registry.RequireAdmin(ctx, gameID, reporterID)
		if err != nil {
			return nil, err
		}
		if game.Status != model.GameStatusActive {
			return nil, fmt.Errorf("%w: game_id=%s status=%s", model.ErrGameNotActive, gameID, game.Status)
		}

		var result *KillResult
		err = s.storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
			r := s.newResolution(tx, game)
			var err error
			result, err = r.resolve(ctx, assignmentID)
			return err
		})
		return result, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("kill recorded",
		slog.String("game_id", string(gameID)),
		slog.String("assignment_id", string(result.AssignmentID)),
		slog.String("killer_id", string(result.KillerID)),
		slog.String("victim_id", string(result.VictimID)),
		slog.Int("expired", len(result.Expired)),
	)
	if result.TeamEliminated {
		s.logger.Info("team eliminated",
			slog.String("game_id", string(gameID)),
			slog.String("victim_id", string(result.VictimID)),
			slog.Int("transferred", len(result.NewAssignments)),
		)
	}
	if result.GameComplete {
		if err := s.completeGame(ctx, gameID); err != nil {
			return result, fmt.Errorf("kill recorded but completing game failed: %w", err)
		}
	}
	return result, nil
}

// completeGame closes the game once at most one team is left
func (s *Service) completeGame(ctx context.Context, gameID model.GameID) error {
	err := s.retrier.Do(ctx, "complete_game", func() error {
		_, err := s.registry.CompleteGame(ctx, gameID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to complete game",
			slog.String("game_id", string(gameID)),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// Disqualify removes a live player from play. Their pending edges expire;
// if their team has no live member left, the teams hunting it inherit its
// targets and the game completes when at most one team remains.
func (s *Service) Disqualify(
	ctx context.Context,
	gameID model.GameID,
	adminID model.UserID,
	playerID model.PlayerID,
) (*Disqualification, error) {
	result, err := retry.Value(ctx, s.retrier, "disqualify", func() (*Disqualification, error) {
		game, err := s.registry.RequireAdmin(ctx, gameID, adminID)
		if err != nil {
			return nil, err
		}
		if game.Status == model.GameStatusComplete {
			return nil, fmt.Errorf("%w: game_id=%s", model.ErrGameComplete, gameID)
		}

		var result *Disqualification
		err = s.storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
			var err error
			result, err = s.newResolution(tx, game).disqualify(ctx, playerID)
			return err
		})
		return result, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player disqualified",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
		slog.Int("expired", len(result.Expired)),
	)
	if result.TeamEliminated {
		s.logger.Info("team eliminated",
			slog.String("game_id", string(gameID)),
			slog.String("victim_id", string(playerID)),
			slog.Int("transferred", len(result.NewAssignments)),
		)
	}
	if result.GameComplete {
		if err := s.completeGame(ctx, gameID); err != nil {
			return result, fmt.Errorf("player disqualified but completing game failed: %w", err)
		}
	}
	return result, nil
}

// resolution carries the state of one elimination inside its write region
type resolution struct {
	tx   storage.GameStore
	game *model.Game
	now  time.Time
	ids  idgen.Generator

	all     []*model.Player
	players map[model.PlayerID]*model.Player
	pending []*model.TargetAssignment
	expired map[model.AssignmentID]bool

	// Edges retired and created so far, in write order
	retired []model.AssignmentID
	created []*model.TargetAssignment
}

func (s *Service) newResolution(tx storage.GameStore, game *model.Game) *resolution {
	return &resolution{
		tx:      tx,
		game:    game,
		now:     s.clock.Now(),
		ids:     s.ids,
		expired: make(map[model.AssignmentID]bool),
	}
}

// load reads the game's players and pending edges
func (r *resolution) load(ctx context.Context) error {
	all, err := r.tx.ListPlayers(ctx, r.game.ID)
	if err != nil {
		return err
	}
	r.all = all
	r.players = make(map[model.PlayerID]*model.Player, len(all))
	for _, p := range all {
		r.players[p.ID] = p
	}
	r.pending, err = r.tx.ListAssignments(ctx, r.game.ID, model.AssignmentPending)
	return err
}

func (r *resolution) resolve(ctx context.Context, assignmentID model.AssignmentID) (*KillResult, error) {
	edge, err := r.tx.GetAssignment(ctx, r.game.ID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !edge.IsPending() {
		return nil, fmt.Errorf("%w: assignment_id=%s status=%s", model.ErrInvalidEdgeState, edge.ID, edge.Status)
	}

	if err := r.load(ctx); err != nil {
		return nil, err
	}
	killer, err := r.combatant(edge.FromPlayer)
	if err != nil {
		return nil, err
	}
	victim, err := r.combatant(edge.ToPlayer)
	if err != nil {
		return nil, err
	}

	killerTeam := teams.TeamOf(killer, r.players)
	victimTeam := teams.TeamOf(victim, r.players)
	hunted := r.huntedBy(victimTeam, killerTeam)

	victim.Status = model.PlayerStatusKilled
	victim.UpdatedAt = r.now
	if err := r.tx.SavePlayer(ctx, victim); err != nil {
		return nil, err
	}
	edge.Status = model.AssignmentComplete
	edge.UpdatedAt = r.now
	if err := r.tx.SaveAssignment(ctx, edge); err != nil {
		return nil, err
	}
	r.expired[edge.ID] = true

	// The victim can no longer hunt or be hunted
	if err := r.expireWhere(ctx, func(a *model.TargetAssignment) bool {
		return a.Involves(victim.ID)
	}); err != nil {
		return nil, err
	}

	eliminated := !anyLive(victimTeam)
	if eliminated && len(hunted) > 0 {
		if err := r.transfer(ctx, killerTeam, hunted); err != nil {
			return nil, err
		}
	}

	return &KillResult{
		AssignmentID:   edge.ID,
		KillerID:       killer.ID,
		VictimID:       victim.ID,
		TeamEliminated: eliminated,
		GameComplete:   teams.CountLive(r.all) <= 1,
		Expired:        r.retired,
		NewAssignments: r.created,
	}, nil
}

// disqualify removes a live player from play. When that leaves the team
// with no live member, every team hunting it inherits its targets the same
// way a killer's team does.
func (r *resolution) disqualify(ctx context.Context, playerID model.PlayerID) (*Disqualification, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	player, ok := r.players[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: game_id=%s player_id=%s", model.ErrPlayerNotFound, r.game.ID, playerID)
	}
	if !player.Status.IsLive() {
		return nil, fmt.Errorf("%w: player_id=%s status=%s", model.ErrInvalidPlayerState, player.ID, player.Status)
	}

	team := teams.TeamOf(player, r.players)
	hunters := r.huntersOf(team)
	hunted := make([][]model.PlayerID, len(hunters))
	for i, hunterTeam := range hunters {
		hunted[i] = r.huntedBy(team, hunterTeam)
	}

	player.Status = model.PlayerStatusDisqualified
	player.UpdatedAt = r.now
	if err := r.tx.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	if err := r.expireWhere(ctx, func(a *model.TargetAssignment) bool {
		return a.Involves(player.ID)
	}); err != nil {
		return nil, err
	}

	eliminated := !anyLive(team)
	if eliminated {
		for i, hunterTeam := range hunters {
			if len(hunted[i]) == 0 {
				continue
			}
			if err := r.transfer(ctx, hunterTeam, hunted[i]); err != nil {
				return nil, err
			}
		}
	}

	return &Disqualification{
		Player:         player,
		TeamEliminated: eliminated,
		GameComplete:   r.game.Status == model.GameStatusActive && teams.CountLive(r.all) <= 1,
		Expired:        r.retired,
		NewAssignments: r.created,
	}, nil
}

// huntersOf returns the live teams holding a pending edge into team, in
// edge order
func (r *resolution) huntersOf(team []*model.Player) [][]*model.Player {
	member := make(map[model.PlayerID]bool, len(team))
	for _, p := range team {
		member[p.ID] = true
	}

	var hunters [][]*model.Player
	seen := make(map[model.PlayerID]bool)
	for _, a := range r.pending {
		if !member[a.ToPlayer] || member[a.FromPlayer] || seen[a.FromPlayer] {
			continue
		}
		from, ok := r.players[a.FromPlayer]
		if !ok || !from.Status.IsLive() {
			continue
		}
		hunterTeam := teams.TeamOf(from, r.players)
		for _, p := range hunterTeam {
			seen[p.ID] = true
		}
		hunters = append(hunters, hunterTeam)
	}
	return hunters
}

// combatant loads an edge endpoint and checks it may take part in a kill
func (r *resolution) combatant(id model.PlayerID) (*model.Player, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: game_id=%s player_id=%s", model.ErrPlayerNotFound, r.game.ID, id)
	}
	switch {
	case p.Status == model.PlayerStatusAlive:
	case p.Status == model.PlayerStatusSafe && r.game.Config.SafeIsTargetable:
	default:
		return nil, fmt.Errorf("%w: player_id=%s status=%s", model.ErrInvalidPlayerState, p.ID, p.Status)
	}
	return p, nil
}

// huntedBy snapshots the live players the victim's team is targeting,
// excluding the killer's own team, in edge order
func (r *resolution) huntedBy(victimTeam, killerTeam []*model.Player) []model.PlayerID {
	inTeam := func(team []*model.Player, id model.PlayerID) bool {
		for _, p := range team {
			if p.ID == id {
				return true
			}
		}
		return false
	}

	var hunted []model.PlayerID
	seen := make(map[model.PlayerID]bool)
	for _, a := range r.pending {
		if !inTeam(victimTeam, a.FromPlayer) || inTeam(killerTeam, a.ToPlayer) || inTeam(victimTeam, a.ToPlayer) {
			continue
		}
		target, ok := r.players[a.ToPlayer]
		if !ok || !target.Status.IsLive() || seen[target.ID] {
			continue
		}
		seen[target.ID] = true
		hunted = append(hunted, target.ID)
	}
	return hunted
}

// transfer replaces the killer team's outgoing edges with edges from each
// of its live members to each hunted player
func (r *resolution) transfer(ctx context.Context, killerTeam []*model.Player, hunted []model.PlayerID) error {
	if err := r.expireWhere(ctx, func(a *model.TargetAssignment) bool {
		for _, p := range killerTeam {
			if a.FromPlayer == p.ID {
				return true
			}
		}
		return false
	}); err != nil {
		return err
	}

	for _, member := range killerTeam {
		if !member.Status.IsLive() {
			continue
		}
		for _, target := range hunted {
			a := &model.TargetAssignment{
				ID:         model.AssignmentID(r.ids.NewID()),
				GameID:     r.game.ID,
				FromPlayer: member.ID,
				ToPlayer:   target,
				Status:     model.AssignmentPending,
				CreatedAt:  r.now,
				UpdatedAt:  r.now,
			}
			if err := r.tx.SaveAssignment(ctx, a); err != nil {
				return err
			}
			r.created = append(r.created, a)
		}
	}
	return nil
}

// expireWhere expires every pending edge matching match that has not
// already been retired
func (r *resolution) expireWhere(ctx context.Context, match func(a *model.TargetAssignment) bool) error {
	for _, a := range r.pending {
		if r.expired[a.ID] || !match(a) {
			continue
		}
		a.Status = model.AssignmentExpired
		a.UpdatedAt = r.now
		if err := r.tx.SaveAssignment(ctx, a); err != nil {
			return err
		}
		r.expired[a.ID] = true
		r.retired = append(r.retired, a.ID)
	}
	return nil
}

func anyLive(team []*model.Player) bool {
	for _, p := range team {
		if p.Status.IsLive() {
			return true
		}
	}
	return false
}

// ToggleSafe flips a player between alive and safe. The target graph is
// left unchanged.
func (s *Service) ToggleSafe(
	ctx context.Context,
	gameID model.GameID,
	adminID model.UserID,
	playerID model.PlayerID,
) (model.PlayerStatus, error) {
	status, err := retry.Value(ctx, s.retrier, "toggle_safe", func() (model.PlayerStatus, error) {
		game, err := s.registry.RequireAdmin(ctx, gameID, adminID)
		if err != nil {
			return "", err
		}
		if game.Status == model.GameStatusComplete {
			return "", fmt.Errorf("%w: game_id=%s", model.ErrGameComplete, gameID)
		}

		var status model.PlayerStatus
		err = s.storage.WithGameTx(ctx, gameID, func(tx storage.GameStore) error {
			player, err := tx.GetPlayer(ctx, gameID, playerID)
			if err != nil {
				return err
			}
			switch player.Status {
			case model.PlayerStatusAlive:
				player.Status = model.PlayerStatusSafe
			case model.PlayerStatusSafe:
				player.Status = model.PlayerStatusAlive
			default:
				return fmt.Errorf("%w: player_id=%s status=%s", model.ErrInvalidPlayerState, player.ID, player.Status)
			}
			player.UpdatedAt = s.clock.Now()
			status = player.Status
			return tx.SavePlayer(ctx, player)
		})
		return status, err
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("safe toggled",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
		slog.String("status", string(status)),
	)
	return status, nil
}
