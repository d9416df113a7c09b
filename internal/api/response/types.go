package response

import (
	"time"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/services/assignment"
	"github.com/mcoot/assassins-go/internal/services/elimination"
	"github.com/mcoot/assassins-go/internal/services/leaderboard"
	"github.com/mcoot/assassins-go/internal/services/teams"
)

// User represents a user in API responses
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:          string(u.ID),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

// GameConfig represents game rule settings
type GameConfig struct {
	PairingPolicy    string `json:"pairing_policy"`
	SafeIsTargetable bool   `json:"safe_is_targetable"`
}

// Game represents a game in API responses
type Game struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	AdminEmails []string   `json:"admin_emails"`
	Config      GameConfig `json:"config"`
	Role        string     `json:"role,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GameFromModel converts model.Game; role is the caller's role, if known
func GameFromModel(g *model.Game, role model.Role) Game {
	return Game{
		ID:          string(g.ID),
		Name:        g.Name,
		Status:      string(g.Status),
		AdminEmails: g.AdminEmails,
		Config: GameConfig{
			PairingPolicy:    string(g.Config.PairingPolicy),
			SafeIsTargetable: g.Config.SafeIsTargetable,
		},
		Role:        string(role),
		CreatedAt:   g.CreatedAt,
		CompletedAt: g.CompletedAt,
	}
}

// Player represents a player in API responses
type Player struct {
	ID        string   `json:"id"`
	GameID    string   `json:"game_id"`
	UserID    string   `json:"user_id"`
	Status    string   `json:"status"`
	PartnerID *string  `json:"partner_id"`
	Invited   []string `json:"invited"`
	InvitedBy []string `json:"invited_by"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	var partner *string
	if p.TeamPartnerID != "" {
		id := string(p.TeamPartnerID)
		partner = &id
	}
	return Player{
		ID:        string(p.ID),
		GameID:    string(p.GameID),
		UserID:    string(p.UserID),
		Status:    string(p.Status),
		PartnerID: partner,
		Invited:   idStrings(p.Invited),
		InvitedBy: idStrings(p.InvitedBy),
	}
}

// PlayersFromModel converts a slice of players
func PlayersFromModel(players []*model.Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// Assignment represents a target assignment edge
type Assignment struct {
	ID         string    `json:"id"`
	FromPlayer string    `json:"from_player_id"`
	ToPlayer   string    `json:"to_player_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AssignmentFromModel converts a model.TargetAssignment
func AssignmentFromModel(a *model.TargetAssignment) Assignment {
	return Assignment{
		ID:         string(a.ID),
		FromPlayer: string(a.FromPlayer),
		ToPlayer:   string(a.ToPlayer),
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// AssignmentsFromModel converts a slice of assignments
func AssignmentsFromModel(assignments []*model.TargetAssignment) []Assignment {
	out := make([]Assignment, len(assignments))
	for i, a := range assignments {
		out[i] = AssignmentFromModel(a)
	}
	return out
}

// CurrentTarget is the response for a player's current assignment. Target is
// null when the player has nobody to hunt.
type CurrentTarget struct {
	PlayerID string      `json:"player_id"`
	Target   *Assignment `json:"target"`
	Targets  []string    `json:"targets"`
}

// CurrentTargetFromModel builds the current-target response
func CurrentTargetFromModel(playerID model.PlayerID, current *model.TargetAssignment, pending []*model.TargetAssignment) CurrentTarget {
	resp := CurrentTarget{PlayerID: string(playerID), Targets: []string{}}
	if current != nil {
		a := AssignmentFromModel(current)
		resp.Target = &a
	}
	for _, p := range pending {
		resp.Targets = append(resp.Targets, string(p.ToPlayer))
	}
	return resp
}

// Teams is the response for a team resolution
type Teams struct {
	Teams    [][]string `json:"teams"`
	Unpaired []string   `json:"unpaired"`
}

// TeamsFromModel converts a team resolution
func TeamsFromModel(teamList []model.Team, unpaired []model.PlayerID) Teams {
	resp := Teams{Teams: make([][]string, len(teamList)), Unpaired: idStrings(unpaired)}
	for i, t := range teamList {
		resp.Teams[i] = idStrings(t)
	}
	return resp
}

// TeamsFromResolution converts a teams.Resolution
func TeamsFromResolution(res teams.Resolution) Teams {
	return TeamsFromModel(res.Teams, res.Unpaired)
}

// Reseed is the response after regenerating assignments
type Reseed struct {
	Teams
	Assignments []Assignment `json:"assignments"`
}

// ReseedFromResult converts an assignment.ReseedResult
func ReseedFromResult(r *assignment.ReseedResult) Reseed {
	return Reseed{
		Teams:       TeamsFromModel(r.Teams, r.Unpaired),
		Assignments: AssignmentsFromModel(r.Assignments),
	}
}

// Kill is the response after a kill is recorded
type Kill struct {
	AssignmentID   string       `json:"assignment_id"`
	KillerID       string       `json:"killer_id"`
	VictimID       string       `json:"victim_id"`
	TeamEliminated bool         `json:"team_eliminated"`
	GameComplete   bool         `json:"game_complete"`
	Expired        []string     `json:"expired"`
	NewAssignments []Assignment `json:"new_assignments"`
}

// KillFromResult converts an elimination.KillResult
func KillFromResult(r *elimination.KillResult) Kill {
	return Kill{
		AssignmentID:   string(r.AssignmentID),
		KillerID:       string(r.KillerID),
		VictimID:       string(r.VictimID),
		TeamEliminated: r.TeamEliminated,
		GameComplete:   r.GameComplete,
		Expired:        idStrings(r.Expired),
		NewAssignments: AssignmentsFromModel(r.NewAssignments),
	}
}

// Disqualification is the player after disqualification plus the graph
// changes it caused
type Disqualification struct {
	Player
	TeamEliminated bool         `json:"team_eliminated"`
	GameComplete   bool         `json:"game_complete"`
	Expired        []string     `json:"expired"`
	NewAssignments []Assignment `json:"new_assignments"`
}

// DisqualificationFromResult converts an elimination.Disqualification
func DisqualificationFromResult(r *elimination.Disqualification) Disqualification {
	return Disqualification{
		Player:         PlayerFromModel(r.Player),
		TeamEliminated: r.TeamEliminated,
		GameComplete:   r.GameComplete,
		Expired:        idStrings(r.Expired),
		NewAssignments: AssignmentsFromModel(r.NewAssignments),
	}
}

// SafeToggle is the response after toggling a player's safe status
type SafeToggle struct {
	PlayerID string `json:"player_id"`
	Status   string `json:"status"`
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	PlayerID    string  `json:"player_id"`
	DisplayName string  `json:"display_name"`
	Status      string  `json:"status"`
	PartnerID   *string `json:"partner_id"`
	Kills       int     `json:"kills"`
	KilledBy    *string `json:"killed_by"`
}

// LeaderboardFromModel converts leaderboard entries
func LeaderboardFromModel(entries []leaderboard.Entry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntry{
			Rank:        e.Rank,
			PlayerID:    string(e.PlayerID),
			DisplayName: e.DisplayName,
			Status:      string(e.Status),
			PartnerID:   optionalID(e.PartnerID),
			Kills:       e.Kills,
			KilledBy:    optionalID(e.KilledBy),
		}
	}
	return out
}

func optionalID(id model.PlayerID) *string {
	if id == "" {
		return nil
	}
	s := string(id)
	return &s
}

func idStrings[T ~string](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
