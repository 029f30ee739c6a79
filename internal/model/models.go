// Package model defines the storage rows of the tombola bot.
package model

import "time"

// GroupSettings is the persisted configuration of a group.
// EnabledSpecials holds special keys such as "104" or "666".
type GroupSettings struct {
	GroupID         int64     `db:"group_id" json:"group_id"`
	Mode            string    `db:"mode" json:"mode"`
	AdminOnly       bool      `db:"admin_only" json:"admin_only"`
	Tombolino       bool      `db:"tombolino" json:"tombolino"`
	EnabledSpecials []string  `db:"enabled_specials" json:"enabled_specials"`
	Ambo            int       `db:"ambo" json:"ambo"`
	Terno           int       `db:"terno" json:"terno"`
	Quaterna        int       `db:"quaterna" json:"quaterna"`
	Cinquina        int       `db:"cinquina" json:"cinquina"`
	Tombola         int       `db:"tombola" json:"tombola"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
