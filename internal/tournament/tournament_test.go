package tournament

import (
	"fmt"
	"testing"

	"convtrainer/internal/models"
	"convtrainer/internal/room"

	"github.com/stretchr/testify/require"
)

func testFactory() RoomFactory {
	return func(id, code string, config models.RoomConfig, hostDisplayName string) (*room.Room, string) {
		return room.New(id, code, config, hostDisplayName, nil, func(room.Event) {}, nil)
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestBracketAllocationOccupancy(t *testing.T) {
	config := models.RoomConfig{
		Mode:       models.ModeClassic,
		Conv:       models.ConvBinaryStandalone,
		GoalType:   models.GoalFirstTo,
		GoalValue:  models.GoalValue{FirstTo: 10},
		Visibility: models.VisibilityPublic,
		MaxPlayers: 4,
	}
	tour := New("t1", "CODE1234", "Cup", config, 4, 10, "admin-1", testFactory(), sequentialIDs("room"), sequentialIDs("CODE"), nil, nil)

	for i := 0; i < 9; i++ {
		_, _, err := tour.Join(fmt.Sprintf("player-%d", i))
		require.NoError(t, err)
	}

	occ := make([]int, 0)
	for _, b := range tour.Brackets() {
		occ = append(occ, b.ParticipantCount)
	}
	require.Equal(t, []int{4, 4, 1}, occ)

	_, bi, err := tour.Join("player-9")
	require.NoError(t, err)
	require.Equal(t, 2, bi)

	occ = nil
	for _, b := range tour.Brackets() {
		occ = append(occ, b.ParticipantCount)
	}
	require.Equal(t, []int{4, 4, 2}, occ)

	_, _, err = tour.Join("player-11")
	require.ErrorIs(t, err, ErrFull)
}

func TestStartRequiresAdmin(t *testing.T) {
	config := models.RoomConfig{Mode: models.ModeClassic, Conv: models.ConvBinaryStandalone, MaxPlayers: 4, Visibility: models.VisibilityPublic}
	tour := New("t1", "CODE1234", "Cup", config, 4, 10, "admin-1", testFactory(), sequentialIDs("room"), sequentialIDs("CODE"), nil, nil)
	_, _, err := tour.Join("player-1")
	require.NoError(t, err)

	err = tour.Start(models.Principal{Role: models.RoleUser})
	require.ErrorIs(t, err, ErrForbidden)

	err = tour.Start(models.Principal{Role: models.RoleAdmin, UserID: "admin-1"})
	require.NoError(t, err)
}
