package core

import (
	"encoding/json"
	"fmt"
)

// NoColor marks an unowned (or owner-hidden) tile in a view.
const NoColor = -1

// LeaderboardRow is one standing: [color, team, armyTotal, landTotal].
type LeaderboardRow [4]int

// TileView is the wire form of one tile as a viewer sees it:
// [type, ownerColor|null, unitCount|null]. Equality is a shallow triple
// comparison so snapshot diffing stays O(n).
type TileView struct {
	Type      TileType
	Color     int
	Unit      int
	UnitKnown bool
}

func (v TileView) Equal(o TileView) bool {
	return v.Type == o.Type && v.Color == o.Color && v.Unit == o.Unit && v.UnitKnown == o.UnitKnown
}

func (v TileView) MarshalJSON() ([]byte, error) {
	arr := [3]interface{}{uint8(v.Type), nil, nil}
	if v.Color != NoColor {
		arr[1] = v.Color
	}
	if v.UnitKnown {
		arr[2] = v.Unit
	}
	return json.Marshal(arr)
}

func (v *TileView) UnmarshalJSON(data []byte) error {
	var arr [3]*int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("tile view: %w", err)
	}
	if arr[0] == nil {
		return fmt.Errorf("tile view: missing type")
	}
	v.Type = TileType(*arr[0])
	v.Color = NoColor
	if arr[1] != nil {
		v.Color = *arr[1]
	}
	v.Unit = 0
	v.UnitKnown = arr[2] != nil
	if arr[2] != nil {
		v.Unit = *arr[2]
	}
	return nil
}
