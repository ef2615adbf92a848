package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/config"
	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/model"
)

func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func TestRootCmd_Subcommands(t *testing.T) {
	for _, name := range []string{"run", "prefetch", "conditions", "mappings", "session", "history", "validate", "version"} {
		assert.NotNil(t, findSubcommand(rootCmd, name), "missing %s", name)
	}

	conditions := findSubcommand(rootCmd, "conditions")
	require.NotNil(t, conditions)
	for _, name := range []string{"list", "add", "delete", "clear", "import", "export"} {
		assert.NotNil(t, findSubcommand(conditions, name), "missing conditions %s", name)
	}
}

func TestRunCmd_Flags(t *testing.T) {
	cmd := runCmd()
	for _, name := range []string{"mode", "prefetched", "tui", "room-ids", "applicant", "start"} {
		assert.NotNil(t, cmd.Flag(name), "missing --%s", name)
	}
	assert.Equal(t, "false", cmd.Flag("prefetched").DefValue)
}

func TestSettingsFor_FlagOverrides(t *testing.T) {
	cmd := runCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--applicant", " 张三 ", "--mode", "BROWSER", "--start", "2025-06-01 09:00:00"}))

	settings := settingsFor(cmd)
	assert.Equal(t, "张三", settings.Applicant)
	assert.Equal(t, "browser", settings.Selection.Mode)
	assert.Equal(t, "2025-06-01 09:00:00", settings.StartText)
}

func TestEngineConfig(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("schedule:\n  lead_time: 0s\nretry:\n  delay: 50ms\n")))

	cfg := engineConfig(config.Load(v))
	assert.Zero(t, cfg.LeadTime, "zero opens exactly at start")
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay)

	defaults := viper.New()
	config.SetDefaults(defaults)
	cfg = engineConfig(config.Load(defaults))
	assert.Equal(t, engine.DefaultConfig().LeadTime, cfg.LeadTime)
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "roomrush.log")

	f, err := openLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("first\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = openLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))

	_, err = openLogFile("")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestParseConditions(t *testing.T) {
	data := []byte(`
conditions:
  - community: Harbor Court
    house_type: 1
    floors: 3-6
    max_price: 4000
  - community: Quiet Gardens
    house_type: 0
    building: 2
`)
	conditions, err := parseConditions(data)
	require.NoError(t, err)
	require.Len(t, conditions, 2)
	assert.Equal(t, model.Condition{
		CommunityName: "Harbor Court",
		HouseType:     model.HouseTypeTwoRoom,
		FloorRange:    "3-6",
		MaxPrice:      4000,
	}, conditions[0])
	assert.Equal(t, 2, conditions[1].BuildingNo)
}

func TestParseConditions_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "empty", data: "", want: "empty"},
		{name: "unknown field", data: "conditions:\n  - community: A\n    colour: red\n", want: "colour"},
		{name: "missing community", data: "conditions:\n  - house_type: 1\n", want: "condition 1"},
		{name: "bad house type", data: "conditions:\n  - community: A\n    house_type: 7\n", want: "invalid house type"},
		{name: "bad floors", data: "conditions:\n  - community: A\n    floors: up\n", want: "condition 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConditions([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMarshalConditions_ImportsBack(t *testing.T) {
	conditions := []model.Condition{
		{CommunityName: "Harbor Court", HouseType: model.HouseTypeThreeRoom, FloorRange: "2,4", MinArea: 60},
	}

	data, err := marshalConditions(conditions)
	require.NoError(t, err)
	assert.Contains(t, string(data), "community: Harbor Court")

	back, err := parseConditions(data)
	require.NoError(t, err)
	assert.Equal(t, conditions, back)
}

func TestWriteConditionsTable(t *testing.T) {
	var buf bytes.Buffer
	writeConditionsTable(&buf, []model.Condition{
		{CommunityName: "Harbor Court", HouseType: model.HouseTypeOneRoom, MaxPrice: 3000},
	})
	out := buf.String()
	assert.Contains(t, out, "Harbor Court")
	assert.Contains(t, out, "一居室")
	assert.Contains(t, out, "3000")
	assert.Contains(t, out, "any")
}

func TestSummarizeIDs(t *testing.T) {
	assert.Equal(t, "a,b", summarizeIDs([]string{"a", "b"}, 5))
	assert.Equal(t, "a,b (+3 more)", summarizeIDs([]string{"a", "b", "c", "d", "e"}, 2))
}

func TestWriteMappingsTable(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 30, 0, 0, time.Local)
	var buf bytes.Buffer
	writeMappingsTable(&buf, []model.RoomIDMapping{
		model.NewRoomIDMapping(model.Condition{CommunityName: "Quiet Gardens", HouseType: model.HouseTypeTwoRoom}, []string{"Q-1", "Q-2"}, now),
	})
	out := buf.String()
	assert.Contains(t, out, "Quiet Gardens")
	assert.Contains(t, out, "Q-1,Q-2")
	assert.Contains(t, out, "2025-06-01 08:30")
}

func TestWriteRunsTable(t *testing.T) {
	var buf bytes.Buffer
	writeRunsTable(&buf, []model.RunRecord{
		{StartedAt: time.Now(), Applicant: "张三", Mode: "http", Outcome: model.OutcomeClaimed, RoomID: "H-3", Attempts: 2},
		{StartedAt: time.Now(), Applicant: "张三", Mode: "browser", Outcome: model.OutcomeExhausted, Detail: "every condition tried"},
	})
	out := buf.String()
	assert.Contains(t, out, "H-3")
	assert.Contains(t, out, "EXHAUSTED")
	assert.Contains(t, out, "every condition tried")
}

func TestRunError(t *testing.T) {
	credentialErr := fmt.Errorf("%w: index redirected to login", common.ErrCredentialInvalid)

	tests := []struct {
		name    string
		result  engine.RunResult
		wantErr error
	}{
		{name: "claimed", result: engine.RunResult{Outcome: model.OutcomeClaimed}},
		{name: "cancelled", result: engine.RunResult{Outcome: model.OutcomeCancelled}},
		{name: "exhausted", result: engine.RunResult{Outcome: model.OutcomeExhausted}, wantErr: errNoRoomClaimed},
		{name: "credential", result: engine.RunResult{Outcome: model.OutcomeCredentialInvalid, Err: credentialErr}, wantErr: common.ErrCredentialInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runError(tt.result)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Error(t, runError(engine.RunResult{Outcome: model.OutcomeConfigError}))
}

func TestRenderRunResult(t *testing.T) {
	conditions := []model.Condition{{CommunityName: "Harbor Court", HouseType: model.HouseTypeOneRoom}}
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	out := renderRunResult(engine.RunResult{
		ID:         "run-1",
		Outcome:    model.OutcomeClaimed,
		RoomID:     "H-3",
		Condition:  0,
		Attempts:   1,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}, conditions)

	assert.Contains(t, out, "Room claimed: H-3")
	assert.Contains(t, out, "Condition 1: Harbor Court")
	assert.Contains(t, out, "Elapsed: 1.5s")
	assert.Contains(t, out, "run-1")
}

func TestSaveCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROOMRUSH_APPLICANT_NAME=张三\n"), 0o600))

	require.NoError(t, saveCookie(path, "SYS_USER_COOKIE_KEY=abc"))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "SYS_USER_COOKIE_KEY=abc", env[cookieEnvKey])
	assert.Equal(t, "张三", env["ROOMRUSH_APPLICANT_NAME"])
}

func TestSaveCookie_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.env")
	require.NoError(t, saveCookie(path, "SYS_USER_COOKIE_KEY=xyz"))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "SYS_USER_COOKIE_KEY=xyz", env[cookieEnvKey])
}
