package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

func TestResolveName_ExactID(t *testing.T) {
	s := state.NewState(testDefs())

	m, err := ResolveName(s, "rusty_key", "")
	require.NoError(t, err)
	assert.Equal(t, "rusty_key", m.ID)
	assert.Equal(t, types.KindObject, m.Kind)
}

func TestResolveName_ByName_CaseInsensitive(t *testing.T) {
	s := state.NewState(testDefs())

	m, err := ResolveName(s, "OLD GUARD", "")
	require.NoError(t, err)
	assert.Equal(t, "guard", m.ID)
	assert.Equal(t, types.KindCharacter, m.Kind)
}

func TestResolveName_RoomScoped(t *testing.T) {
	s := state.NewState(testDefs())
	// Player is in "hall". Golden key is in "entrance".

	_, err := ResolveName(s, "golden key", "")
	assert.IsType(t, &NotFoundError{}, err)
}

func TestResolveName_Inventory(t *testing.T) {
	s := state.NewState(testDefs())
	state.GiveItem(s, "golden_key")

	m, err := ResolveName(s, "golden key", types.KindObject)
	require.NoError(t, err)
	assert.Equal(t, "golden_key", m.ID)
}

func TestResolveName_KindFilter(t *testing.T) {
	s := state.NewState(testDefs())

	_, err := ResolveName(s, "guard", types.KindObject)
	assert.IsType(t, &NotFoundError{}, err)
}

func TestResolveName_Ambiguity(t *testing.T) {
	defs := testDefs()
	defs.Objects["golden_key"].Fields["Location"] = "hall"
	s := state.NewState(defs)

	_, err := ResolveName(s, "key", "")
	require.IsType(t, &AmbiguityError{}, err)
	assert.Len(t, err.(*AmbiguityError).Candidates, 2)
}

func TestResolveName_RuntimeLocationChange(t *testing.T) {
	s := state.NewState(testDefs())
	s.Characters["guard"].Fields["Location"] = "entrance"

	_, err := ResolveName(s, "old guard", "")
	assert.IsType(t, &NotFoundError{}, err)
}

func TestResolveName_UnderscoreNormalization(t *testing.T) {
	s := state.NewState(testDefs())

	m, err := ResolveName(s, "iron door", "")
	require.NoError(t, err)
	assert.Equal(t, "iron_door", m.ID)
}
