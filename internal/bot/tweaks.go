package bot

// Tweaks are the per-bot autonomous behavior toggles. They persist across
// reconnects; controllers are started and stopped to match whenever the
// actor is present.
type Tweaks struct {
	AutoReconnect bool `json:"autoReconnect"`
	AutoRespawn   bool `json:"autoRespawn"`
	AutoSprint    bool `json:"autoSprint"`
	AutoEat       bool `json:"autoEat"`
	AutoSleep     bool `json:"autoSleep"`
	// AutoMinePlace permits navigation to break and place terrain.
	AutoMinePlace bool `json:"autoMinePlace"`
	AntiIdle      bool `json:"antiIdle"`
	// FollowPlayer is the name of the player to trail; empty disables.
	FollowPlayer string `json:"followPlayer"`
}

// TweaksPatch is a partial update: nil fields keep their current value.
type TweaksPatch struct {
	AutoReconnect *bool   `json:"autoReconnect,omitempty"`
	AutoRespawn   *bool   `json:"autoRespawn,omitempty"`
	AutoSprint    *bool   `json:"autoSprint,omitempty"`
	AutoEat       *bool   `json:"autoEat,omitempty"`
	AutoSleep     *bool   `json:"autoSleep,omitempty"`
	AutoMinePlace *bool   `json:"autoMinePlace,omitempty"`
	AntiIdle      *bool   `json:"antiIdle,omitempty"`
	FollowPlayer  *string `json:"followPlayer,omitempty"`
}

// apply merges the patch into t.
func (t *Tweaks) apply(p TweaksPatch) {
	if p.AutoReconnect != nil {
		t.AutoReconnect = *p.AutoReconnect
	}
	if p.AutoRespawn != nil {
		t.AutoRespawn = *p.AutoRespawn
	}
	if p.AutoSprint != nil {
		t.AutoSprint = *p.AutoSprint
	}
	if p.AutoEat != nil {
		t.AutoEat = *p.AutoEat
	}
	if p.AutoSleep != nil {
		t.AutoSleep = *p.AutoSleep
	}
	if p.AutoMinePlace != nil {
		t.AutoMinePlace = *p.AutoMinePlace
	}
	if p.AntiIdle != nil {
		t.AntiIdle = *p.AntiIdle
	}
	if p.FollowPlayer != nil {
		t.FollowPlayer = *p.FollowPlayer
	}
}
