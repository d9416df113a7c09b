package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/assassins-go/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case response.User:
		fmt.Fprintf(o.w, "User: %s (%s)\n", v.DisplayName, v.ID)
		fmt.Fprintf(o.w, "Email: %s\n", v.Email)
	case response.Game:
		o.printGame(v)
	case response.Player:
		o.printPlayer(v)
	case []response.Player:
		fmt.Fprintf(o.w, "Players (%d):\n", len(v))
		for _, p := range v {
			fmt.Fprintf(o.w, "  - %s user=%s %s%s\n", p.ID, p.UserID, p.Status, partnerSuffix(p.PartnerID))
		}
	case response.SafeToggle:
		fmt.Fprintf(o.w, "Player %s is now %s\n", v.PlayerID, v.Status)
	case response.Teams:
		o.printTeams(v)
	case response.Reseed:
		o.printTeams(v.Teams)
		o.printAssignments(v.Assignments)
	case []response.Assignment:
		o.printAssignments(v)
	case response.CurrentTarget:
		if v.Target == nil {
			fmt.Fprintf(o.w, "Player %s has no target\n", v.PlayerID)
		} else {
			fmt.Fprintf(o.w, "Player %s is hunting %s (assignment %s)\n", v.PlayerID, v.Target.ToPlayer, v.Target.ID)
		}
		if len(v.Targets) > 1 {
			fmt.Fprintf(o.w, "All targets: %s\n", strings.Join(v.Targets, ", "))
		}
	case response.Kill:
		o.printKill(v)
	case response.Disqualification:
		o.printDisqualification(v)
	case []response.LeaderboardEntry:
		o.printLeaderboard(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printGame(g response.Game) {
	fmt.Fprintf(o.w, "Game: %s (%s)\n", g.Name, g.ID)
	fmt.Fprintf(o.w, "Status: %s\n", g.Status)
	fmt.Fprintf(o.w, "Pairing: %s\n", g.Config.PairingPolicy)
	fmt.Fprintf(o.w, "Safe targetable: %t\n", g.Config.SafeIsTargetable)
	fmt.Fprintf(o.w, "Admins: %s\n", strings.Join(g.AdminEmails, ", "))
	if g.Role != "" {
		fmt.Fprintf(o.w, "Your role: %s\n", g.Role)
	}
	if g.CompletedAt != nil {
		fmt.Fprintf(o.w, "Completed: %s\n", g.CompletedAt.Format("2006-01-02 15:04:05"))
	}
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s\n", p.ID)
	fmt.Fprintf(o.w, "User: %s\n", p.UserID)
	fmt.Fprintf(o.w, "Status: %s\n", p.Status)
	if p.PartnerID != nil {
		fmt.Fprintf(o.w, "Partner: %s\n", *p.PartnerID)
	}
	if len(p.Invited) > 0 {
		fmt.Fprintf(o.w, "Invited: %s\n", strings.Join(p.Invited, ", "))
	}
	if len(p.InvitedBy) > 0 {
		fmt.Fprintf(o.w, "Invited by: %s\n", strings.Join(p.InvitedBy, ", "))
	}
}

func (o *Output) printTeams(t response.Teams) {
	fmt.Fprintf(o.w, "Teams (%d):\n", len(t.Teams))
	for _, team := range t.Teams {
		fmt.Fprintf(o.w, "  - %s\n", strings.Join(team, " + "))
	}
	if len(t.Unpaired) > 0 {
		fmt.Fprintf(o.w, "Unpaired: %s\n", strings.Join(t.Unpaired, ", "))
	}
}

func (o *Output) printAssignments(assignments []response.Assignment) {
	fmt.Fprintf(o.w, "Assignments (%d):\n", len(assignments))
	for _, a := range assignments {
		fmt.Fprintf(o.w, "  %s: %s -> %s [%s]\n", a.ID, a.FromPlayer, a.ToPlayer, a.Status)
	}
}

func (o *Output) printKill(k response.Kill) {
	fmt.Fprintf(o.w, "%s killed %s\n", k.KillerID, k.VictimID)
	if len(k.Expired) > 0 {
		fmt.Fprintf(o.w, "Expired: %s\n", strings.Join(k.Expired, ", "))
	}
	if k.TeamEliminated {
		fmt.Fprintln(o.w, "Team eliminated!")
		for _, a := range k.NewAssignments {
			fmt.Fprintf(o.w, "  new target %s: %s -> %s\n", a.ID, a.FromPlayer, a.ToPlayer)
		}
	}
	if k.GameComplete {
		fmt.Fprintln(o.w, "Game complete!")
	}
}

func (o *Output) printDisqualification(d response.Disqualification) {
	fmt.Fprintf(o.w, "%s disqualified\n", d.ID)
	if len(d.Expired) > 0 {
		fmt.Fprintf(o.w, "Expired: %s\n", strings.Join(d.Expired, ", "))
	}
	if d.TeamEliminated {
		fmt.Fprintln(o.w, "Team eliminated!")
		for _, a := range d.NewAssignments {
			fmt.Fprintf(o.w, "  new target %s: %s -> %s\n", a.ID, a.FromPlayer, a.ToPlayer)
		}
	}
	if d.GameComplete {
		fmt.Fprintln(o.w, "Game complete!")
	}
}

func (o *Output) printLeaderboard(entries []response.LeaderboardEntry) {
	fmt.Fprintln(o.w, "Leaderboard:")
	for _, e := range entries {
		line := fmt.Sprintf("  %d. %s (%s) %s, %d kills", e.Rank, e.DisplayName, e.PlayerID, e.Status, e.Kills)
		if e.KilledBy != nil {
			line += ", killed by " + *e.KilledBy
		}
		fmt.Fprintln(o.w, line+partnerSuffix(e.PartnerID))
	}
}

func partnerSuffix(partnerID *string) string {
	if partnerID == nil {
		return ""
	}
	return " partner=" + *partnerID
}
