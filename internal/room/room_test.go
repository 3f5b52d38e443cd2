package room

import (
	"testing"

	"convtrainer/internal/models"

	"github.com/stretchr/testify/require"
)

func noopCheck(hash, candidate string) bool { return hash == candidate }

func newTestRoom(t *testing.T, config models.RoomConfig) (*Room, string, *[]Event) {
	t.Helper()
	events := &[]Event{}
	r, hostID := New("room-1", "ABC123", config, "Host", noopCheck, func(e Event) {
		*events = append(*events, e)
	}, nil)
	return r, hostID, events
}

func classicConfig(firstTo int) models.RoomConfig {
	return models.RoomConfig{
		Mode:       models.ModeClassic,
		Conv:       models.ConvBinaryStandalone,
		GoalType:   models.GoalFirstTo,
		GoalValue:  models.GoalValue{FirstTo: firstTo},
		Visibility: models.VisibilityPublic,
		MaxPlayers: 8,
	}
}

func syncToPlaying(t *testing.T, r *Room, participantIDs []string) {
	t.Helper()
	require.NoError(t, r.StartGame(""))
	for round := 0; round < 4; round++ {
		for _, id := range participantIDs {
			_ = r.SyncAck(id, round)
		}
	}
	require.Equal(t, models.RoomPlaying, r.GetState().Status)
}

// currentAnswer reads the private per-player/shared question state
// directly; this file lives in package room so it can reach it.
func currentAnswer(r *Room, participantID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if isSharedPace(r.config.Mode) {
		return r.sharedQuestion.CanonicalAnswer
	}
	return r.perPlayerQuestion[participantID].CanonicalAnswer
}

func TestRosterCapEnforced(t *testing.T) {
	config := classicConfig(3)
	config.MaxPlayers = 2
	r, _, _ := newTestRoom(t, config)

	_, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)

	_, err = r.Join(JoinInput{DisplayName: "C"})
	require.ErrorIs(t, err, ErrRoomFull)

	require.LessOrEqual(t, len(r.GetState().Participants), config.MaxPlayers)
}

func TestMonotonicStatusSequence(t *testing.T) {
	r, hostID, _ := newTestRoom(t, classicConfig(1))
	joinB, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)

	var seen []models.RoomStatus
	seen = append(seen, r.GetState().Status)
	require.NoError(t, r.StartGame(hostID))
	seen = append(seen, r.GetState().Status)
	for round := 0; round < 4; round++ {
		_ = r.SyncAck(hostID, round)
		_ = r.SyncAck(joinB.ParticipantID, round)
	}
	seen = append(seen, r.GetState().Status)
	require.NoError(t, r.HostEnd(hostID))
	seen = append(seen, r.GetState().Status)

	valid := []models.RoomStatus{models.RoomLobby, models.RoomSyncing, models.RoomPlaying, models.RoomEnded}
	idx := 0
	for _, s := range seen {
		for idx < len(valid) && valid[idx] != s {
			idx++
		}
		require.Less(t, idx, len(valid), "status %s out of sequence", s)
	}
}

func TestFirstToGoalEndsGame(t *testing.T) {
	r, hostID, _ := newTestRoom(t, classicConfig(3))
	joinB, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)

	syncToPlaying(t, r, []string{hostID, joinB.ParticipantID})

	for i := 0; i < 3; i++ {
		answer := currentAnswer(r, hostID)
		require.NoError(t, r.SubmitAnswer(hostID, answer))
	}

	final := r.GetState()
	require.Equal(t, models.RoomEnded, final.Status)
	require.Equal(t, models.EndGoalReached, final.EndReason)
	require.Equal(t, "Host", final.Leaderboard[0].DisplayName)
	require.Equal(t, 3, final.Leaderboard[0].Score)
}

func TestSurvivalEliminationEndsGame(t *testing.T) {
	config := models.RoomConfig{
		Mode:       models.ModeSurvival,
		Conv:       models.ConvBinaryStandalone,
		GoalValue:  models.GoalValue{Lives: 1},
		Visibility: models.VisibilityPublic,
		MaxPlayers: 8,
	}
	r, hostID, _ := newTestRoom(t, config)
	joinB, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)

	syncToPlaying(t, r, []string{hostID, joinB.ParticipantID})

	require.NoError(t, r.SubmitAnswer(hostID, "definitely-wrong"))
	require.NoError(t, r.SubmitAnswer(joinB.ParticipantID, "definitely-wrong"))

	final := r.GetState()
	require.Equal(t, models.RoomEnded, final.Status)
	require.Equal(t, models.EndGoalReached, final.EndReason)
	for _, p := range final.Participants {
		require.Equal(t, 0, p.Score)
	}
}

func TestHostEndWithinPlaying(t *testing.T) {
	r, hostID, _ := newTestRoom(t, classicConfig(5))
	joinB, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)
	syncToPlaying(t, r, []string{hostID, joinB.ParticipantID})

	require.NoError(t, r.HostEnd(hostID))
	final := r.GetState()
	require.Equal(t, models.RoomEnded, final.Status)
	require.Equal(t, models.EndHostEnded, final.EndReason)
}

func TestHostEndRejectsNonHost(t *testing.T) {
	r, hostID, _ := newTestRoom(t, classicConfig(5))
	joinB, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)
	syncToPlaying(t, r, []string{hostID, joinB.ParticipantID})

	err = r.HostEnd(joinB.ParticipantID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSpeedRoundSharedPaceBroadcastsToAll(t *testing.T) {
	config := models.RoomConfig{
		Mode:       models.ModeSpeedRound,
		Conv:       models.ConvHexStandalone,
		Visibility: models.VisibilityPublic,
		MaxPlayers: 8,
	}
	r, hostID, events := newTestRoom(t, config)
	joinB, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)
	joinC, err := r.Join(JoinInput{DisplayName: "C"})
	require.NoError(t, err)

	syncToPlaying(t, r, []string{hostID, joinB.ParticipantID, joinC.ParticipantID})

	answer := currentAnswer(r, hostID)
	require.NoError(t, r.SubmitAnswer(hostID, answer))

	var sawBroadcastQuestion bool
	for _, e := range *events {
		if e.Type == "question" {
			sawBroadcastQuestion = true
		}
	}
	require.True(t, sawBroadcastQuestion)
}

func TestJoinRejectsBadPassword(t *testing.T) {
	config := classicConfig(3)
	config.Visibility = models.VisibilityPublicPass
	config.PasswordHash = "secret"
	r, _, _ := newTestRoom(t, config)

	_, err := r.Join(JoinInput{DisplayName: "B", Password: "wrong"})
	require.ErrorIs(t, err, ErrPasswordInvalid)

	_, err = r.Join(JoinInput{DisplayName: "B", Password: "secret"})
	require.NoError(t, err)
}

func TestJoinRejectsAfterStartForPlayers(t *testing.T) {
	r, hostID, _ := newTestRoom(t, classicConfig(3))
	require.NoError(t, r.StartGame(hostID))

	_, err := r.Join(JoinInput{DisplayName: "Late"})
	require.ErrorIs(t, err, ErrRoomStarted)

	_, err = r.Join(JoinInput{DisplayName: "Spectator", AsSpectator: true})
	require.NoError(t, err)
}

func TestLeaderboardRanksByBestStreakInStreakMode(t *testing.T) {
	config := models.RoomConfig{
		Mode:       models.ModeClassic,
		Conv:       models.ConvBinaryStandalone,
		GoalType:   models.GoalStreak,
		Visibility: models.VisibilityPublic,
		MaxPlayers: 8,
	}
	r, hostID, _ := newTestRoom(t, config)
	joinB, err := r.Join(JoinInput{DisplayName: "B"})
	require.NoError(t, err)

	syncToPlaying(t, r, []string{hostID, joinB.ParticipantID})

	// Host: correct, correct, wrong, correct, correct -> score 4, best streak 2.
	for _, correct := range []bool{true, true, false, true, true} {
		answer := currentAnswer(r, hostID)
		if !correct {
			answer = answer + "-wrong"
		}
		require.NoError(t, r.SubmitAnswer(hostID, answer))
	}
	// B: correct x3 -> score 3, best streak 3.
	for i := 0; i < 3; i++ {
		answer := currentAnswer(r, joinB.ParticipantID)
		require.NoError(t, r.SubmitAnswer(joinB.ParticipantID, answer))
	}

	board := r.GetState().Leaderboard
	require.Equal(t, "B", board[0].DisplayName)
	require.Equal(t, "Host", board[1].DisplayName)
}
