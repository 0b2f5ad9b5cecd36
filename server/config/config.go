// Package config loads the room configuration: an HCL file describing
// tables and their automated seats, with environment variables filling
// the operational knobs (database, LLM endpoint, listen address).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Room is the decoded configuration file.
type Room struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []Table        `hcl:"table,block"`
	NPCs   []NPC          `hcl:"npc,block"`
}

// ServerSettings holds the process-level knobs.
type ServerSettings struct {
	Addr     string `hcl:"addr,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// Table describes one cash-game table to bring up at start.
type Table struct {
	Name       string `hcl:"name,label"`
	SmallBlind int    `hcl:"small_blind"`
	BigBlind   int    `hcl:"big_blind"`
	MaxSeats   int    `hcl:"max_seats,optional"`
	BuyIn      int    `hcl:"buy_in,optional"`
	TurnTimeMS int    `hcl:"turn_time_ms,optional"`
	HandPauseMS int   `hcl:"hand_pause_ms,optional"`
}

// NPC describes one automated seat and the tables it joins.
type NPC struct {
	Name        string   `hcl:"name,label"`
	Personality string   `hcl:"personality,optional"`
	Tables      []string `hcl:"tables,optional"`
	BuyIn       int      `hcl:"buy_in,optional"`
	Advised     bool     `hcl:"advised,optional"` // route decisions through the LLM advisor
}

// Default is the configuration used when no file is present: one
// six-max table with four automated seats.
func Default() *Room {
	return &Room{
		Server: ServerSettings{
			Addr:     ":8080",
			LogLevel: "info",
		},
		Tables: []Table{
			{
				Name:       "main",
				SmallBlind: 10,
				BigBlind:   20,
				MaxSeats:   6,
				BuyIn:      2000,
				TurnTimeMS: 15000,
			},
		},
		NPCs: []NPC{
			{Name: "ada", Personality: "balanced", Tables: []string{"main"}},
			{Name: "bix", Personality: "maniac", Tables: []string{"main"}},
			{Name: "cyd", Personality: "rock", Tables: []string{"main"}},
			{Name: "dot", Personality: "station", Tables: []string{"main"}},
		},
	}
}

// Load reads an HCL file, filling defaults for anything omitted. A
// missing file yields Default.
func Load(filename string) (*Room, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var room Room
	if diags := gohcl.DecodeBody(file.Body, nil, &room); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}

	if room.Server.Addr == "" {
		room.Server.Addr = ":8080"
	}
	if room.Server.LogLevel == "" {
		room.Server.LogLevel = "info"
	}
	for i := range room.Tables {
		t := &room.Tables[i]
		if t.MaxSeats == 0 {
			t.MaxSeats = 6
		}
		if t.BuyIn == 0 {
			t.BuyIn = t.BigBlind * 100
		}
		if t.TurnTimeMS == 0 {
			t.TurnTimeMS = 15000
		}
	}
	for i := range room.NPCs {
		n := &room.NPCs[i]
		if n.Personality == "" {
			n.Personality = "balanced"
		}
		if len(n.Tables) == 0 {
			for _, t := range room.Tables {
				n.Tables = append(n.Tables, t.Name)
			}
		}
	}
	return &room, nil
}

// Validate rejects configurations the engine cannot run.
func (r *Room) Validate() error {
	if len(r.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}
	names := map[string]bool{}
	for _, t := range r.Tables {
		if t.Name == "" {
			return fmt.Errorf("table with empty name")
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate table %q", t.Name)
		}
		names[t.Name] = true
		if t.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", t.Name)
		}
		if t.BigBlind <= t.SmallBlind {
			return fmt.Errorf("table %s: big blind must exceed small blind", t.Name)
		}
		if t.MaxSeats < 2 || t.MaxSeats > 9 {
			return fmt.Errorf("table %s: max seats must be 2..9", t.Name)
		}
		if t.BuyIn < t.BigBlind {
			return fmt.Errorf("table %s: buy-in below one big blind", t.Name)
		}
	}
	for _, n := range r.NPCs {
		for _, tn := range n.Tables {
			if !names[tn] {
				return fmt.Errorf("npc %s: unknown table %q", n.Name, tn)
			}
		}
	}
	return nil
}

// TableByName returns the named table config, or nil.
func (r *Room) TableByName(name string) *Table {
	for i := range r.Tables {
		if r.Tables[i].Name == name {
			return &r.Tables[i]
		}
	}
	return nil
}

// NPCsForTable lists the automated seats configured for a table.
func (r *Room) NPCsForTable(name string) []NPC {
	var out []NPC
	for _, n := range r.NPCs {
		for _, tn := range n.Tables {
			if tn == name {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

/* -----------------------------
   Environment helpers
------------------------------*/

func Getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func AtoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func AsBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
