package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "room.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	room, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, room.Validate())
	require.Len(t, room.Tables, 1)
	assert.Equal(t, "main", room.Tables[0].Name)
	assert.Equal(t, ":8080", room.Server.Addr)
	assert.NotEmpty(t, room.NPCs)
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
server {
  addr = ":9090"
}

table "stakes" {
  small_blind = 25
  big_blind   = 50
}

npc "zed" {}
`)
	room, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, room.Validate())

	tbl := room.TableByName("stakes")
	require.NotNil(t, tbl)
	assert.Equal(t, 6, tbl.MaxSeats)
	assert.Equal(t, 5000, tbl.BuyIn, "default buy-in is 100 big blinds")
	assert.Equal(t, 15000, tbl.TurnTimeMS)
	assert.Equal(t, ":9090", room.Server.Addr)
	assert.Equal(t, "info", room.Server.LogLevel)

	require.Len(t, room.NPCs, 1)
	assert.Equal(t, "balanced", room.NPCs[0].Personality)
	assert.Equal(t, []string{"stakes"}, room.NPCs[0].Tables, "npc joins every table when none listed")
	assert.Equal(t, room.NPCs, room.NPCsForTable("stakes"))
}

func TestValidateRejectsBadBlinds(t *testing.T) {
	path := writeConfig(t, `
server {}

table "broken" {
  small_blind = 50
  big_blind   = 50
}
`)
	room, err := Load(path)
	require.NoError(t, err)
	assert.Error(t, room.Validate())
}

func TestValidateRejectsUnknownNPCTable(t *testing.T) {
	path := writeConfig(t, `
server {}

table "main" {
  small_blind = 10
  big_blind   = 20
}

npc "lost" {
  tables = ["nowhere"]
}
`)
	room, err := Load(path)
	require.NoError(t, err)
	assert.Error(t, room.Validate())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_KEY", "value")
	assert.Equal(t, "value", Getenv("CFG_TEST_KEY", "def"))
	assert.Equal(t, "def", Getenv("CFG_TEST_MISSING", "def"))
	assert.Equal(t, 7, AtoiDef("7", 3))
	assert.Equal(t, 3, AtoiDef("x", 3))
	assert.Equal(t, 3, AtoiDef("", 3))
	assert.True(t, AsBool("Yes"))
	assert.False(t, AsBool("0"))
}
